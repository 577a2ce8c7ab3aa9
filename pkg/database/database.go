package database

import (
	"context"
	"fmt"
	"time"

	"price-service/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and configures the connection pool. The returned
// handle is safe for concurrent use and must be released with Close.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Error
	}

	// explicit level wins over the environment default
	switch cfg.Database.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	pgConfig := postgres.Config{
		DSN:                  cfg.Database.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connection established",
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Name),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns))
	return db, nil
}

// Migrate runs AutoMigrate for the given models.
func Migrate(db *gorm.DB, log *zap.Logger, models ...interface{}) error {
	start := time.Now()
	log.Info("Starting database migration...")

	if err := db.AutoMigrate(models...); err != nil {
		log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	log.Info("Database migration completed successfully",
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Ping checks that the pool can reach the server.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close drains the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
