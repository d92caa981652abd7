// Package database opens the gorm connection for the configured engine.
package database

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/dsn"
	"github.com/GoPowerDNS-Admin/go-settings/internal/logger/adapter/stdlogger"
)

const (
	slowThreshold = 200 * time.Millisecond
	sqliteDirPerm = 0o750
)

// Dialector returns the gorm dialector of the configured engine.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	connection := dsn.CreateForEngine(cfg, cfg.DB.GormEngine)

	switch cfg.DB.GormEngine {
	case config.EngineMySQL, "":
		return gormmysql.Open(connection), nil
	case config.EnginePostgres:
		return gormpostgres.Open(connection), nil
	case config.EngineSQLite:
		return sqlite.Open(connection), nil
	default:
		return nil, errors.Wrapf(config.ErrUnknownGormEngine, "%q", cfg.DB.GormEngine)
	}
}

// Open connects to the configured database. gorm logs through zerolog.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		if err = prepareSQLite(cfg.DB.Name); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(cfg.DB.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect %s database", cfg.DB.GormEngine)
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		// sqlite has a single writer, and every connection to :memory: is a database of its own
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "sqlite connection pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// prepareSQLite creates the directory of the database file.
func prepareSQLite(name string) error {
	if name == "" || strings.HasPrefix(name, ":memory:") || strings.HasPrefix(name, "file:") {
		return nil
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, sqliteDirPerm); err != nil {
		return errors.Wrapf(err, "create database directory %s", dir)
	}

	return nil
}

// NewLogger returns a gorm logger writing to zerolog.
// Slow queries and errors go out at warn, traced statements at debug.
func NewLogger(level string) gormlogger.Interface {
	return gormlogger.New(
		stdlogger.NewWithLevel(zerolog.WarnLevel),
		gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  parseLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
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
