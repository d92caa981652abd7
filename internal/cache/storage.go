package cache

import (
	"fmt"
	"time"

	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	postgresstorage "github.com/gofiber/storage/postgres/v3"
	pkgerrors "github.com/pkg/errors"
)

const (
	// BackendMySQL is the distributed backend on a shared MySQL table.
	BackendMySQL = "mysql"
	// BackendPostgres is the distributed backend on a shared PostgreSQL table.
	BackendPostgres = "postgres"
)

// KV is the subset of the gofiber storage drivers used by Storage.
// Get returns a nil value without error when the key does not exist.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Reset() error
	Close() error
}

// Storage adapts a gofiber storage driver, shared by every process pointing at the same table.
type Storage struct {
	name string
	kv   KV
}

// NewStorage wraps kv under the given backend name.
func NewStorage(name string, kv KV) *Storage {
	return &Storage{name: name, kv: kv}
}

// StorageConfig holds the connection settings of the distributed backends.
type StorageConfig struct {
	ConnectionURI string
	Table         string
	GCInterval    time.Duration
}

// NewMySQLStorage connects the MySQL storage driver.
func NewMySQLStorage(cfg StorageConfig) (s *Storage, err error) {
	// the driver panics when it cannot reach the database
	defer recoverConnect(BackendMySQL, &err)

	kv := mysqlstorage.New(mysqlstorage.Config{
		ConnectionURI: cfg.ConnectionURI,
		Table:         cfg.Table,
		GCInterval:    cfg.GCInterval,
	})

	return NewStorage(BackendMySQL, kv), nil
}

// NewPostgresStorage connects the PostgreSQL storage driver.
func NewPostgresStorage(cfg StorageConfig) (s *Storage, err error) {
	defer recoverConnect(BackendPostgres, &err)

	kv := postgresstorage.New(postgresstorage.Config{
		ConnectionURI: cfg.ConnectionURI,
		Table:         cfg.Table,
		GCInterval:    cfg.GCInterval,
	})

	return NewStorage(BackendPostgres, kv), nil
}

func recoverConnect(backend string, err *error) {
	if r := recover(); r != nil {
		*err = pkgerrors.Wrapf(ErrBackend, "connect %s storage: %v", backend, r)
	}
}

// Name implements Adapter.
func (s *Storage) Name() string { return s.name }

// Has implements Adapter.
func (s *Storage) Has(key string) (bool, error) {
	val, err := s.kv.Get(key)
	if err != nil {
		return false, s.backendErr(err, "get")
	}

	return val != nil, nil
}

// Get implements Adapter.
func (s *Storage) Get(key string) ([]byte, error) {
	val, err := s.kv.Get(key)
	if err != nil {
		return nil, s.backendErr(err, "get")
	}
	if val == nil {
		return nil, ErrMiss
	}

	return val, nil
}

// Set implements Adapter.
func (s *Storage) Set(key string, value []byte, ttl time.Duration) error {
	if err := s.kv.Set(key, value, ttl); err != nil {
		return s.backendErr(err, "set")
	}

	return nil
}

// Delete implements Adapter.
func (s *Storage) Delete(keys ...string) error {
	for _, key := range keys {
		if err := s.kv.Delete(key); err != nil {
			return s.backendErr(err, "delete")
		}
	}

	return nil
}

// Clear implements Adapter.
func (s *Storage) Clear() error {
	if err := s.kv.Reset(); err != nil {
		return s.backendErr(err, "reset")
	}

	return nil
}

// Close closes the underlying driver.
func (s *Storage) Close() error {
	return s.kv.Close()
}

func (s *Storage) backendErr(err error, op string) error {
	return pkgerrors.Wrap(ErrBackend, fmt.Sprintf("%s %s: %v", s.name, op, err))
}
