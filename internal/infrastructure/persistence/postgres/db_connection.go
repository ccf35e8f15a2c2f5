// Package postgres provides the pgx connection pool and the PostgreSQL authorization code store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	config *config.PostgresConfig
	logger logger.Logger
}

// NewDBConnection creates the pool and performs an initial health check.
func NewDBConnection(ctx context.Context, cfg *config.PostgresConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is not configured")
	}
	log = log.WithComponent("Postgres")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		log.Error(ctx, "failed to parse database connection string", err)
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "failed to create database connection pool", err)
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	db := &DBConnection{pool: pool, config: cfg, logger: log}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "postgres connection pool initialized",
		logger.Int("max_conns", int(poolConfig.MaxConns)),
		logger.Int("total_conns", int(pool.Stat().TotalConns())))
	return db, nil
}

func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies the database responds; slow answers are logged.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.logger.Error(ctx, "database ping failed", err)
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	if latency := time.Since(start); latency > 100*time.Millisecond {
		db.logger.Warn(ctx, "high database latency detected",
			logger.Int64("latency_ms", latency.Milliseconds()))
	}
	return nil
}

func (db *DBConnection) Close() {
	db.pool.Close()
	db.logger.Info(context.Background(), "postgres connection pool closed")
}
