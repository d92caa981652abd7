package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// BackendMemory is the in-process backend name.
const BackendMemory = "memory"

// Memory is an in-process cache on top of ttlcache.
type Memory struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemory creates an in-process cache. defaultTTL applies to entries set with NoTTL,
// zero keeps them until deleted.
func NewMemory(defaultTTL time.Duration) *Memory {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()

	return &Memory{cache: cache}
}

// Name implements Adapter.
func (m *Memory) Name() string { return BackendMemory }

// Has implements Adapter.
func (m *Memory) Has(key string) (bool, error) {
	return m.cache.Has(key), nil
}

// Get implements Adapter.
func (m *Memory) Get(key string) ([]byte, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, ErrMiss
	}

	return item.Value(), nil
}

// Set implements Adapter.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == NoTTL {
		ttl = ttlcache.DefaultTTL
	}

	m.cache.Set(key, value, ttl)

	return nil
}

// Delete implements Adapter.
func (m *Memory) Delete(keys ...string) error {
	for _, key := range keys {
		m.cache.Delete(key)
	}

	return nil
}

// Clear implements Adapter.
func (m *Memory) Clear() error {
	m.cache.DeleteAll()

	return nil
}

// Close stops the expiry goroutine.
func (m *Memory) Close() error {
	m.cache.Stop()

	return nil
}
