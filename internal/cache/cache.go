// Package cache implements the pluggable key value cache that sits in front of the settings store.
//
// Every backend satisfies Adapter. Backends are interchangeable: the settings service only relies on
// the methods below and never on atomicity a backend does not offer natively.
package cache

import (
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is not cached or has expired.
	ErrMiss = errors.New("cache miss")
	// ErrBackend wraps failures of the cache backend itself.
	ErrBackend = errors.New("cache backend failure")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// NoTTL stores an entry until it is deleted.
const NoTTL time.Duration = 0

// Adapter is the capability every cache backend provides.
type Adapter interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Has reports whether key holds a live entry.
	Has(key string) (bool, error)
	// Get returns the cached value or ErrMiss.
	Get(key string) ([]byte, error)
	// Set stores value under key. A ttl of NoTTL never expires.
	Set(key string, value []byte, ttl time.Duration) error
	// Delete removes all given keys in one call. Missing keys are not an error.
	Delete(keys ...string) error
	// Clear removes every entry of the backend.
	Clear() error
}
