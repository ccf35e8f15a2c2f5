// Package gormrepo implements the relational repositories (authorization requests, grants,
// issued tokens, logout notifications, audit events) on top of gorm. The same code runs against
// PostgreSQL in production and SQLite in development and tests.
package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// Open connects to the configured database and, when enabled, migrates the schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Error(ctx, "failed to open database", err, logger.String("driver", cfg.Driver))
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			log.Error(ctx, "database migration failed", err)
			return nil, err
		}
	}

	log.Info(ctx, "database connection established",
		logger.String("driver", cfg.Driver),
		logger.Bool("auto_migrate", cfg.AutoMigrate))
	return db, nil
}

// Migrate creates or updates every table owned by this package.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&authorizationRequestRecord{},
		&authorizationGrantedRecord{},
		&authorizedTokenRecord{},
		&codeGrantRecord{},
		&logoutNotificationRecord{},
		&models.AuditEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks the underlying connection; used by the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
