// Package app は設定、ロガー、データストア、サービス、ルーターを組み立てて各起動モードを実行する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/shoplist/internal/access"
	"github.com/hitoshi/shoplist/internal/auth"
	"github.com/hitoshi/shoplist/internal/config"
	"github.com/hitoshi/shoplist/internal/database"
	"github.com/hitoshi/shoplist/internal/handler"
	"github.com/hitoshi/shoplist/internal/logger"
	"github.com/hitoshi/shoplist/internal/metrics"
	"github.com/hitoshi/shoplist/internal/middleware"
	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
	"github.com/hitoshi/shoplist/internal/repository/memory"
	"github.com/hitoshi/shoplist/internal/security"
	"github.com/hitoshi/shoplist/internal/shoppingitem"
	"github.com/hitoshi/shoplist/internal/shoppinglist"
	"github.com/hitoshi/shoplist/internal/user"
	"github.com/hitoshi/shoplist/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.SlogLevel())
	return cfg, nil
}

// stores はリポジトリ一式と、その背後のデータストアへの参照をまとめたもの。
type stores struct {
	users  repository.UserRepository
	lists  repository.ShoppingListRepository
	items  repository.ShoppingItemRepository
	purger cleanup.Purger

	db *sql.DB // インメモリストアの場合はnil
}

// healthChecker はヘルスチェック対象を返す。インメモリストアの場合はnil。
func (s *stores) healthChecker() handler.HealthChecker {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// openStores はDATABASE_URLに応じてPostgreSQLまたはインメモリのリポジトリを生成する。
func openStores(cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStore() {
		slog.Warn("DATABASE_URL is not set; using in-memory store (data is lost on restart)")
		store := memory.NewStore()
		st := &stores{
			users:  store.Users(),
			lists:  store.Lists(),
			items:  store.Items(),
			purger: store.Items(),
		}
		if cfg.HasBootstrapAdmin() {
			if err := seedBootstrapAdmin(context.Background(), cfg, st.users); err != nil {
				return nil, err
			}
		}
		return st, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	itemRepo := repository.NewPostgresShoppingItemRepo(db)
	return &stores{
		users:  repository.NewPostgresUserRepo(db),
		lists:  repository.NewPostgresShoppingListRepo(db),
		items:  itemRepo,
		purger: itemRepo,
		db:     db,
	}, nil
}

// seedBootstrapAdmin はBOOTSTRAP_ADMIN_*で指定された管理者を作成する。
func seedBootstrapAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	u, err := user.NewService(users).CreateUser(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword, true)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	slog.Info("bootstrap admin created",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// server はHTTPハンドラーと、停止時に解放するリソースを保持する。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// newServer は全依存関係をワイヤリングしたHTTPハンドラーを構築する。
func newServer(cfg *config.Config, st *stores, reg *prometheus.Registry) *server {
	collector := metrics.NewCollector(reg)

	// 1. アクセス制御・入力サニタイズ
	policy := access.NewPolicy(st.lists)
	sanitizer := security.NewNameSanitizer()

	// 2. ドメインサービス
	issuer := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	authService := auth.NewService(st.users, issuer)
	userService := user.NewService(st.users)
	listService := shoppinglist.NewService(st.lists, st.users, policy, sanitizer, shoppinglist.Config{
		PageSize: cfg.ListPageSize,
		Recorder: collector,
		Logger:   slog.Default(),
	})
	itemService := shoppingitem.NewService(st.items, st.lists, policy, sanitizer, shoppingitem.Config{
		PageSize: cfg.ItemPageSize,
		Recorder: collector,
		Logger:   slog.Default(),
	})

	// 3. レート制限（ユーザー単位の分・日）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.PerMinute = cfg.RateLimitPerMinute
	rateLimiterCfg.PerDay = cfg.RateLimitPerDay
	rateLimiterCfg.Recorder = collector
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)

	// 4. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HTTPRecorder:      collector,

		HealthChecker:  st.healthChecker(),
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		UserService: userService,

		ListService: listService,
		ItemService: itemService,
	})

	return &server{handler: router, rateLimiter: rateLimiter}
}

// newRegistry はGo runtimeとプロセスのコレクターを登録したレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RunServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
// インメモリストアの場合はBOOTSTRAP_ADMIN_*の指定が必須。
func RunServe(cfg *config.Config) error {
	if cfg.UsesMemoryStore() && !cfg.HasBootstrapAdmin() {
		return fmt.Errorf("serve with in-memory store requires BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD")
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := newServer(cfg, st, newRegistry())
	defer srv.rateLimiter.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
			slog.Bool("memory_store", cfg.UsesMemoryStore()),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// RunWorker はワーカーモードで起動する。
// 購入済みアイテムのクリーンアップを起動直後とCleanupInterval毎に実行する。
// インメモリストアはプロセス間で共有できないため、DATABASE_URLが必須。
func RunWorker(cfg *config.Config) error {
	if cfg.UsesMemoryStore() {
		return fmt.Errorf("worker requires DATABASE_URL")
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cleanupJob := cleanup.NewCleanupJob(st.purger, slog.Default(), nil)
	cleanupJob.RetentionDays = cfg.PurchasedRetentionDays

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cfg.PurchasedRetentionDays),
	)

	runCleanupLoop(ctx, cleanupJob, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runCleanupLoop は起動直後に1回、その後interval毎にジョブを実行する。ctxのキャンセルで戻る。
func runCleanupLoop(ctx context.Context, job *cleanup.CleanupJob, interval time.Duration) {
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func RunMigrate(cfg *config.Config) error {
	if cfg.UsesMemoryStore() {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// RunCreateUser はユーザーを作成する。管理者の初期登録に使用する。
func RunCreateUser(ctx context.Context, cfg *config.Config, username, password string, isAdmin bool) (*model.User, error) {
	if cfg.UsesMemoryStore() {
		return nil, fmt.Errorf("createuser requires DATABASE_URL")
	}

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	u, err := user.NewService(st.users).CreateUser(ctx, username, password, isAdmin)
	if err != nil {
		return nil, err
	}

	slog.Info("user created",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
		slog.Bool("is_admin", u.IsAdmin),
	)
	return u, nil
}

// RunHealthcheck はローカルで起動中のAPIサーバーの/healthを確認する。
// distroless環境でのDockerヘルスチェック用。
func RunHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	resp, err := resty.New().
		SetTimeout(5 * time.Second).
		R().
		Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode())
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
