// Package settings is the read-through cached access layer on top of the setting store.
//
// Reads prefer the cache and fall back to the store, populating the cache on the way.
// Writes go to the store first and invalidate the affected cache keys afterwards, so a failed
// write never touches the cache and a successful one never leaves a stale entry behind.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/go-settings/internal/cache"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/controller/setting"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/models"
)

const (
	// AllKey caches the complete name to value mapping.
	AllKey = "settings.all"

	keyPrefix = "setting."
)

// Key returns the cache key of a single setting.
func Key(name string) string {
	return keyPrefix + name
}

// Store is the persistence the service reads from and writes to.
// *setting.Store satisfies it for every entity type.
type Store[PT any] interface {
	Get(ctx context.Context, name string) (PT, error)
	Values(ctx context.Context) (map[string]*string, error)
	Set(ctx context.Context, name string, value *string) (PT, error)
	SetMultiple(ctx context.Context, values map[string]*string) error
	Delete(ctx context.Context, name string) error
}

// Option configures a Service.
type Option func(*options)

type options struct {
	ttl    time.Duration
	strict bool
}

// WithTTL sets the lifetime of entries written by the service. cache.NoTTL keeps them until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithStrictInvalidation makes writes return an error when the cache could not be invalidated.
// The store write has happened in that case.
func WithStrictInvalidation(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// Service coordinates a Store and a cache.Adapter for entity type T.
// Embed *Service in a custom type to extend it.
type Service[T any, PT models.EntityPtr[T]] struct {
	store Store[PT]
	cache cache.Adapter
	opts  options

	// generation counts invalidations. A read-through fill is only cached when no
	// invalidation happened between its store read and the cache write.
	mu         sync.RWMutex
	generation atomic.Uint64
}

// Default is the service bound to models.Setting.
type Default = Service[models.Setting, *models.Setting]

// New returns a Service on top of store and adapter. A nil adapter disables caching.
func New[T any, PT models.EntityPtr[T]](store Store[PT], adapter cache.Adapter, opts ...Option) *Service[T, PT] {
	if adapter == nil {
		adapter = cache.Noop{}
	}

	s := &Service[T, PT]{
		store: store,
		cache: adapter,
	}

	for _, opt := range opts {
		opt(&s.opts)
	}

	return s
}

// NewDefault returns the Service for models.Setting persisted through db.
func NewDefault(db *gorm.DB, adapter cache.Adapter, opts ...Option) *Default {
	return New[models.Setting](setting.NewDefault(db), adapter, opts...)
}

// Cache returns the adapter the service works with.
func (s *Service[T, PT]) Cache() cache.Adapter {
	return s.cache
}

// Get returns the value of name. A nil value is a stored null.
func (s *Service[T, PT]) Get(ctx context.Context, name string) (*string, error) {
	if name == "" {
		return nil, setting.ErrSettingNameEmpty
	}

	var value *string
	if s.lookup(Key(name), &value) {
		return value, nil
	}

	gen := s.generation.Load()

	entity, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	value = entity.GetValue()
	s.fill(gen, map[string]any{Key(name): value})

	return value, nil
}

// GetRawSetting returns the stored entity of name, bypassing the cache.
func (s *Service[T, PT]) GetRawSetting(ctx context.Context, name string) (PT, error) {
	return s.store.Get(ctx, name)
}

// Set persists value under name and invalidates the cached entries it affects.
func (s *Service[T, PT]) Set(ctx context.Context, name string, value *string) error {
	if _, err := s.store.Set(ctx, name, value); err != nil {
		return err
	}

	return s.invalidate(AllKey, Key(name))
}

// SetMultiple persists all values in one transaction and invalidates the cache once for the batch.
func (s *Service[T, PT]) SetMultiple(ctx context.Context, values map[string]*string) error {
	if err := s.store.SetMultiple(ctx, values); err != nil {
		return err
	}

	if len(values) == 0 {
		return nil
	}

	keys := make([]string, 0, len(values)+1)
	keys = append(keys, AllKey)
	for name := range values {
		keys = append(keys, Key(name))
	}
	slices.Sort(keys[1:])

	return s.invalidate(keys...)
}

// Delete removes name from the store and invalidates the cached entries it affects.
func (s *Service[T, PT]) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}

	return s.invalidate(AllKey, Key(name))
}

// All returns every setting as name to value mapping.
// On a miss the aggregate and every single entry are cached.
func (s *Service[T, PT]) All(ctx context.Context) (map[string]*string, error) {
	var values map[string]*string
	if s.lookup(AllKey, &values) && values != nil {
		return values, nil
	}

	gen := s.generation.Load()

	values, err := s.store.Values(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]any, len(values)+1)
	entries[AllKey] = values
	for name, value := range values {
		entries[Key(name)] = value
	}

	s.fill(gen, entries)

	return values, nil
}

// Invalidate drops the aggregate and the given names from the cache.
// Without names the whole cache is cleared.
func (s *Service[T, PT]) Invalidate(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation.Add(1)

	if len(names) == 0 {
		if err := s.cache.Clear(); err != nil {
			log.Error().Err(err).Str("backend", s.cache.Name()).Msg("can't clear settings cache")

			return pkgerrors.Wrap(err, "clear settings cache")
		}

		return nil
	}

	keys := make([]string, 0, len(names)+1)
	keys = append(keys, AllKey)
	for _, name := range names {
		keys = append(keys, Key(name))
	}

	if err := s.cache.Delete(keys...); err != nil {
		log.Error().Err(err).Str("backend", s.cache.Name()).Strs("keys", keys).Msg("can't invalidate settings cache")

		return pkgerrors.Wrap(err, "invalidate settings cache")
	}

	return nil
}

// invalidate deletes keys after a successful store write.
func (s *Service[T, PT]) invalidate(keys ...string) error {
	s.mu.Lock()
	s.generation.Add(1)
	err := s.cache.Delete(keys...)
	s.mu.Unlock()

	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("backend", s.cache.Name()).Strs("keys", keys).Msg("settings cache invalidation failed")

	if s.opts.strict {
		if !errors.Is(err, cache.ErrBackend) {
			err = pkgerrors.Wrap(cache.ErrBackend, err.Error())
		}

		return pkgerrors.WithMessage(err, "setting stored but cache not invalidated")
	}

	return nil
}

// lookup decodes the cached entry of key into dst. Cache failures count as a miss.
func (s *Service[T, PT]) lookup(key string, dst any) bool {
	raw, err := s.cache.Get(key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("backend", s.cache.Name()).Str("key", key).Msg("settings cache read failed")
		}

		return false
	}

	if err = json.Unmarshal(raw, dst); err != nil {
		log.Warn().Err(err).Str("backend", s.cache.Name()).Str("key", key).Msg("can't decode cached setting")

		return false
	}

	return true
}

// fill caches entries read from the store at generation gen.
// Nothing is written when an invalidation happened since.
func (s *Service[T, PT]) fill(gen uint64, entries map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.generation.Load() != gen {
		log.Debug().Str("backend", s.cache.Name()).Msg("settings changed during read, skipping cache fill")

		return
	}

	for key, value := range entries {
		s.put(key, value)
	}
}

func (s *Service[T, PT]) put(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("can't encode setting for cache")

		return
	}

	if err = s.cache.Set(key, raw, s.opts.ttl); err != nil {
		log.Warn().Err(err).Str("backend", s.cache.Name()).Str("key", key).Msg("settings cache write failed")
	}
}
