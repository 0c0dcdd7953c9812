// Package database opens the embedded SQLite database that holds the view log.
package database

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petmvp/passportview/internal/model"
	"github.com/petmvp/passportview/pkg/errors"
	"github.com/petmvp/passportview/pkg/logger"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// pragmas are applied to every connection before migrating.
// The pool is capped at one connection, so they hold for the lifetime of the DB.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// Open opens the database at path, creating its directory, and migrates the models.
func Open(path string) (*gorm.DB, error) {
	logger.Info("Opening view log database", zap.String("path", path))

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	// writes are serialised by SQLite anyway; one connection avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			logger.Warn("Failed to apply pragma", zap.String("pragma", p), zap.Error(err))
		}
	}

	models := model.AllModels()
	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}
	logger.Info("View log database ready", zap.Int("models", len(models)))
	return db, nil
}

// Close closes the underlying connection pool. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	logger.Info("Closing view log database")
	return sqlDB.Close()
}

// Ping checks that the database still answers
func Ping(db *gorm.DB) error {
	if db == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database ping failed", err)
	}
	return nil
}
