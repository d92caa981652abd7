package cache

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/dsn"
)

// New builds the configured backend wrapped in Instrument.
// A disabled cache yields the Noop backend.
func New(cfg *config.Config) (*Instrumented, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var (
		adapter Adapter
		err     error
		c       = cfg.Cache
	)

	if !c.Enabled {
		return Instrument(Noop{}), nil
	}

	switch c.Backend {
	case BackendMemory:
		adapter = NewMemory(c.TTL)
	case BackendFilesystem:
		adapter, err = NewFilesystem(c.Path)
	case BackendMySQL:
		adapter, err = NewMySQLStorage(StorageConfig{
			ConnectionURI: dsn.Create(cfg),
			Table:         c.Table,
			GCInterval:    c.GCInterval,
		})
	case BackendPostgres:
		adapter, err = NewPostgresStorage(StorageConfig{
			ConnectionURI: dsn.CreatePostgres(cfg),
			Table:         c.Table,
			GCInterval:    c.GCInterval,
		})
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", c.Backend)
	}

	if err != nil {
		return nil, err
	}

	log.Info().Str("backend", adapter.Name()).Dur("ttl", c.TTL).Msg("settings cache enabled")

	return Instrument(adapter), nil
}
