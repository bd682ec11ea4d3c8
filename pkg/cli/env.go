package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/bastion/pkg/config"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/storage/postgres"
)

// Env holds what the admin commands need from the process
type Env struct {
	Out    io.Writer
	In     io.Reader
	Logger *observability.Logger

	LoadConfig func() (*config.Config, error)
	OpenDB     func(ctx context.Context, cfg *config.Config) (*sql.DB, error)
	OpenRedis  func(ctx context.Context, cfg *config.Config) (*redis.Client, error)
}

// DefaultEnv reads configuration from the environment and talks to the
// configured Postgres and Redis.
func DefaultEnv() *Env {
	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
	return &Env{
		Out:        os.Stdout,
		In:         os.Stdin,
		Logger:     logger,
		LoadConfig: config.LoadConfig,
		OpenDB: func(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
			cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfig{
				URL:         cfg.Database.URL,
				MaxConns:    cfg.Database.MaxOpenConns,
				MinConns:    cfg.Database.MaxIdleConns,
				Timeout:     cfg.Database.ConnectTimeout,
				MaxLifetime: cfg.Database.ConnMaxLifetime,
			}, logger)
			if err != nil {
				return nil, err
			}
			return cm.DB(), nil
		},
		OpenRedis: func(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
			return postgres.NewRedisClient(ctx, postgres.RedisConfig{
				URL:        cfg.Redis.URL,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				MaxRetries: cfg.Redis.MaxRetries,
				PoolSize:   cfg.Redis.PoolSize,
			})
		},
	}
}

func (e *Env) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format, args...)
}

// database loads config and opens the database. The caller closes the db.
func (e *Env) database(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := e.OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, db, nil
}
