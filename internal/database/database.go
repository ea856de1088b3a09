// Package database abre o *gorm.DB compartilhado pela API e pelos jobs.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/migrate"
	"github.com/otaviolbarbosa/nascere/migrations"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open conecta, ajusta o pool conforme a config e faz ping.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
	}
	if cfg.DBMinConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMinConns)
	}
	if cfg.DBMaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DBMaxConnLifetime)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate aplica as migrations embutidas no binário.
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	return migrate.Run(ctx, db, migrations.FS, log)
}

// Close fecha o pool subjacente.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
