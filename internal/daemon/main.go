// Package daemon wires the settings service and runs it.
package daemon

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/go-settings/internal/cache"
	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/controller/setting"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/database"
	"github.com/GoPowerDNS-Admin/go-settings/internal/settings"
	"github.com/GoPowerDNS-Admin/go-settings/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	cache      *cache.Instrumented
	settings   *settings.Default
	webService *web.Service
}

// Start starts the web service and blocks until it got shut down by a signal.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start()
	}()

	go d.webService.WaitShutdown()

	err := <-errCh

	d.Close()

	return err
}

// Settings returns the settings service of the daemon.
func (d *Daemon) Settings() *settings.Default {
	return d.settings
}

// Close releases the cache backend and the database connection.
func (d *Daemon) Close() {
	if err := d.cache.Close(); err != nil {
		log.Error().Err(err).Msg("can't close settings cache")
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("can't close database")
		}
	}
}

// Open connects database and cache and builds the settings service without starting the web service.
func Open(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = setting.NewDefault(db).Migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	adapter, err := cache.New(cfg)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}

		return nil, errors.Wrap(err, "failed to open settings cache")
	}

	svc := settings.NewDefault(db, adapter,
		settings.WithTTL(cfg.Cache.TTL),
		settings.WithStrictInvalidation(cfg.Cache.StrictInvalidation),
	)

	return &Daemon{
		cfg:      cfg,
		db:       db,
		cache:    adapter,
		settings: svc,
	}, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = seed(cfg, d.db, d.settings); err != nil {
		d.Close()

		return nil, err
	}

	d.webService = web.New(cfg, d.settings)

	return d, nil
}
