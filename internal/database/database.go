// Package database provides sqlite-backed persistence for books, finalized
// reading sessions and small key-value scalars.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bookmate/bookmate/internal/logger"
)

// Database wraps the gorm connection
type Database struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open opens (creating if necessary) the sqlite database at path and runs
// migrations.
func Open(path string, log *logger.Logger) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %q: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&BookRecord{}, &SessionRecord{}, &KeyValue{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database opened", map[string]interface{}{"path": path})
	return &Database{db: db, log: log}, nil
}

// GetDB exposes the underlying gorm handle
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// Close closes the underlying connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
