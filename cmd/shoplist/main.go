// Command shoplist は買い物リストAPIのサーバー、ワーカー、管理コマンドを提供する。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/shoplist/internal/app"
	"github.com/hitoshi/shoplist/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd はサブコマンドを登録したルートコマンドを生成する。
// サブコマンド省略時はserveとして動作する。
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	// loadConfig は設定を必要とするサブコマンドの前処理。
	loadConfig := func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = app.Init(os.Stdout)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		return nil
	}

	serve := func(cmd *cobra.Command, args []string) error {
		return app.RunServe(cfg)
	}

	root := &cobra.Command{
		Use:           "shoplist",
		Short:         "Collaborative shopping list API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       loadConfig,
		RunE:          serve,
	}

	root.AddCommand(
		&cobra.Command{
			Use:     "serve",
			Short:   "Start the HTTP API server",
			PreRunE: loadConfig,
			RunE:    serve,
		},
		&cobra.Command{
			Use:     "worker",
			Short:   "Run periodic cleanup of purchased items",
			PreRunE: loadConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunWorker(cfg)
			},
		},
		&cobra.Command{
			Use:     "migrate",
			Short:   "Apply database migrations",
			PreRunE: loadConfig,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.RunMigrate(cfg)
			},
		},
		newHealthcheckCmd(),
		newCreateUserCmd(loadConfig, func() *config.Config { return cfg }),
	)

	return root
}

// newHealthcheckCmd はヘルスチェックコマンドを生成する。
// distroless環境で使うため、設定の読み込みを行わずSERVER_PORTのみ参照する。
func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the local API server's /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return app.RunHealthcheck(port)
		},
	}
}

func newCreateUserCmd(preRun func(*cobra.Command, []string) error, cfg func() *config.Config) *cobra.Command {
	var (
		username string
		password string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:     "createuser",
		Short:   "Create a user (use --admin to bootstrap an administrator)",
		PreRunE: preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.RunCreateUser(cmd.Context(), cfg(), username, password, admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username of the new user")
	cmd.Flags().StringVar(&password, "password", "", "password of the new user")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator rights")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
