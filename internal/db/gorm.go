package db

import (
	"fmt"

	"omdraw/internal/config"
	"omdraw/internal/logger"
	"omdraw/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// NewGorm connects to postgres and migrates the history schema.
func NewGorm(cfg *config.Config) (*GormDB, error) {
	return Open(cfg.DatabaseURL(), cfg.DBLogLevel)
}

// Open connects using a raw DSN. Tests use it with a container DSN.
func Open(dsn, logLevel string) (*GormDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Users first: rooms and chats reference them.
	if err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Chat{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log := logger.Component("db")
	log.Info().Msg("✓ Database connected and migrated successfully")

	return &GormDB{db}, nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
