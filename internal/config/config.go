// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// 空の場合はインメモリストアで起動する（開発用）。
	DatabaseURL string `env:"DATABASE_URL"`

	// Token
	TokenSecret string        `env:"TOKEN_SECRET,required" validate:"min=32"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h" validate:"gt=0"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080" validate:"numeric"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000" validate:"url"`

	// Rate Limit（ユーザー単位）
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60" validate:"min=1"`
	RateLimitPerDay    int `env:"RATE_LIMIT_PER_DAY" envDefault:"5000" validate:"min=1"`

	// Pagination
	ListPageSize int `env:"LIST_PAGE_SIZE" envDefault:"10" validate:"min=1,max=1000"`
	ItemPageSize int `env:"ITEM_PAGE_SIZE" envDefault:"100" validate:"min=1,max=1000"`

	// Bootstrap
	// インメモリストア起動時に作成する管理者。片方だけの指定はエラー。
	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME" validate:"required_with=BootstrapAdminPassword"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD" validate:"required_with=BootstrapAdminUsername"`

	// Cleanup
	PurchasedRetentionDays int           `env:"PURCHASED_RETENTION_DAYS" envDefault:"30" validate:"min=0"`
	CleanupInterval        time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h" validate:"gt=0"`
}

// UsesMemoryStore はDATABASE_URL未設定でインメモリストアを使うかどうかを返す。
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}

// HasBootstrapAdmin は起動時に作成する管理者が指定されているかどうかを返す。
func (c *Config) HasBootstrapAdmin() bool {
	return c.BootstrapAdminUsername != "" && c.BootstrapAdminPassword != ""
}

// SlogLevel はLogLevelをslog.Levelに変換する。
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数の未設定や値の検証エラーがある場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
