package settings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/go-settings/internal/cache"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/controller/setting"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/models"
	"github.com/GoPowerDNS-Admin/go-settings/internal/settings"
)

func ptr(s string) *string { return &s }

// countingStore counts store reads and can be switched to fail every call.
type countingStore struct {
	settings.Store[*models.Setting]

	gets   int
	values int
	err    error
}

func (c *countingStore) Get(ctx context.Context, name string) (*models.Setting, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}

	return c.Store.Get(ctx, name)
}

func (c *countingStore) Values(ctx context.Context) (map[string]*string, error) {
	c.values++
	if c.err != nil {
		return nil, c.err
	}

	return c.Store.Values(ctx)
}

func (c *countingStore) Set(ctx context.Context, name string, value *string) (*models.Setting, error) {
	if c.err != nil {
		return nil, c.err
	}

	return c.Store.Set(ctx, name, value)
}

func (c *countingStore) SetMultiple(ctx context.Context, values map[string]*string) error {
	if c.err != nil {
		return c.err
	}

	return c.Store.SetMultiple(ctx, values)
}

// pausingStore holds reads after they loaded from the store until released.
type pausingStore struct {
	settings.Store[*models.Setting]

	loaded  chan struct{}
	release chan struct{}
}

func newPausingStore(store settings.Store[*models.Setting]) *pausingStore {
	return &pausingStore{
		Store:   store,
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *pausingStore) Get(ctx context.Context, name string) (*models.Setting, error) {
	entity, err := p.Store.Get(ctx, name)
	p.loaded <- struct{}{}
	<-p.release

	return entity, err
}

func (p *pausingStore) Values(ctx context.Context) (map[string]*string, error) {
	values, err := p.Store.Values(ctx)
	p.loaded <- struct{}{}
	<-p.release

	return values, err
}

// brokenCache fails every operation like an unreachable backend.
type brokenCache struct{}

func (brokenCache) Name() string { return "broken" }
func (brokenCache) Has(string) (bool, error) { return false, cache.ErrBackend }
func (brokenCache) Get(string) ([]byte, error) { return nil, cache.ErrBackend }
func (brokenCache) Set(string, []byte, time.Duration) error { return cache.ErrBackend }
func (brokenCache) Delete(...string) error { return cache.ErrBackend }
func (brokenCache) Clear() error { return cache.ErrBackend }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, setting.NewDefault(db).Migrate())

	return db
}

type fixture struct {
	db      *gorm.DB
	store   *countingStore
	cache   *cache.Instrumented
	service *settings.Default
}

func newFixture(t *testing.T, opts ...settings.Option) *fixture {
	t.Helper()

	db := setupTestDB(t)
	store := &countingStore{Store: setting.NewDefault(db)}
	adapter := cache.Instrument(cache.NewMemory(cache.NoTTL))
	t.Cleanup(func() { _ = adapter.Close() })

	ctx := context.Background()
	require.NoError(t, setting.NewDefault(db).SetMultiple(ctx, map[string]*string{
		"name1": ptr("value1"),
		"name2": ptr("value2"),
		"null":  nil,
	}))

	return &fixture{
		db:      db,
		store:   store,
		cache:   adapter,
		service: settings.New[models.Setting](store, adapter, opts...),
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		settingName   string
		expectedValue *string
		expectedError error
		cached        bool
	}{
		{name: "value", settingName: "name1", expectedValue: ptr("value1"), cached: true},
		{name: "null value", settingName: "null", cached: true},
		{name: "not found", settingName: "missing", expectedError: setting.ErrSettingNotFound},
		{name: "empty name", settingName: "", expectedError: setting.ErrSettingNameEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			value, err := f.service.Get(ctx, tc.settingName)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Zero(t, f.cache.Calls(cache.OpSet), "negative lookups are not cached")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedValue, value)
			assert.Equal(t, 1, f.store.gets)

			ok, err := f.cache.Has(settings.Key(tc.settingName))
			require.NoError(t, err)
			assert.Equal(t, tc.cached, ok)

			// the second read is served from the cache
			value, err = f.service.Get(ctx, tc.settingName)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedValue, value)
			assert.Equal(t, 1, f.store.gets)
		})
	}
}

func TestGetRawSetting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 2 {
		raw, err := f.service.GetRawSetting(ctx, "name1")
		require.NoError(t, err)
		assert.Equal(t, "name1", raw.Name)
		assert.Equal(t, ptr("value1"), raw.Value)
	}

	// always read from the store, never cached
	assert.Equal(t, 2, f.store.gets)
	assert.Zero(t, f.cache.Calls(cache.OpSet))

	_, err := f.service.GetRawSetting(ctx, "missing")
	require.ErrorIs(t, err, setting.ErrSettingNotFound)
}

func TestAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expected := map[string]*string{
		"name1": ptr("value1"),
		"name2": ptr("value2"),
		"null":  nil,
	}

	all, err := f.service.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, all)
	assert.Equal(t, 1, f.store.values)

	all, err = f.service.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, all)
	assert.Equal(t, 1, f.store.values)

	// the aggregate miss also populated every single entry
	for name, value := range expected {
		got, err := f.service.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
	assert.Zero(t, f.store.gets)
}

func TestSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.All(ctx)
	require.NoError(t, err)
	_, err = f.service.Get(ctx, "name1")
	require.NoError(t, err)

	require.NoError(t, f.service.Set(ctx, "name1", ptr("new-value1")))
	assert.Equal(t, 1, f.cache.Calls(cache.OpDelete))

	// neither the per name entry nor the aggregate is stale
	for _, key := range []string{settings.Key("name1"), settings.AllKey} {
		ok, err := f.cache.Has(key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	value, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("new-value1"), value)
	assert.Equal(t, 1, f.store.gets)

	all, err := f.service.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, ptr("new-value1"), all["name1"])
	assert.Equal(t, 2, f.store.values)

	// a new name works the same way
	require.NoError(t, f.service.Set(ctx, "name3", nil))
	value, err = f.service.Get(ctx, "name3")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSetMultiple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.All(ctx)
	require.NoError(t, err)

	err = f.service.SetMultiple(ctx, map[string]*string{
		"name1": ptr("new-value1"),
		"name3": ptr("value3"),
		"name4": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Calls(cache.OpDelete), "one invalidation for the whole batch")

	all, err := f.service.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]*string{
		"name1": ptr("new-value1"),
		"name2": ptr("value2"),
		"name3": ptr("value3"),
		"name4": nil,
		"null":  nil,
	}, all)

	t.Run("empty batch does not invalidate", func(t *testing.T) {
		require.NoError(t, f.service.SetMultiple(ctx, map[string]*string{}))
		assert.Equal(t, 1, f.cache.Calls(cache.OpDelete))
	})

	t.Run("failed batch leaves store and cache alone", func(t *testing.T) {
		_, err := f.service.All(ctx)
		require.NoError(t, err)

		err = f.service.SetMultiple(ctx, map[string]*string{"name2": ptr("x"), "": ptr("y")})
		require.ErrorIs(t, err, setting.ErrSettingNameEmpty)
		assert.Equal(t, 1, f.cache.Calls(cache.OpDelete))

		ok, err := f.cache.Has(settings.AllKey)
		require.NoError(t, err)
		assert.True(t, ok)

		raw, err := f.service.GetRawSetting(ctx, "name2")
		require.NoError(t, err)
		assert.Equal(t, ptr("value2"), raw.Value)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, "name1"))
	assert.Equal(t, 1, f.cache.Calls(cache.OpDelete))

	_, err = f.service.Get(ctx, "name1")
	require.ErrorIs(t, err, setting.ErrSettingNotFound)

	err = f.service.Delete(ctx, "name1")
	require.ErrorIs(t, err, setting.ErrSettingNotFound)
	assert.Equal(t, 1, f.cache.Calls(cache.OpDelete))
}

func TestPersistenceFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)

	errConnection := errors.New("connection refused")
	f.store.err = errConnection

	err = f.service.Set(ctx, "name1", ptr("lost"))
	require.ErrorIs(t, err, errConnection)

	err = f.service.SetMultiple(ctx, map[string]*string{"name1": ptr("lost")})
	require.ErrorIs(t, err, errConnection)

	assert.Zero(t, f.cache.Calls(cache.OpDelete))

	// the cached value is still served
	value, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("value1"), value)

	_, err = f.service.All(ctx)
	require.ErrorIs(t, err, errConnection)
}

func TestCacheFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := setting.NewDefault(db)

	_, err := store.Set(ctx, "name1", ptr("value1"))
	require.NoError(t, err)

	t.Run("reads fall back to the store", func(t *testing.T) {
		service := settings.New[models.Setting](store, brokenCache{})

		value, err := service.Get(ctx, "name1")
		require.NoError(t, err)
		assert.Equal(t, ptr("value1"), value)

		all, err := service.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("writes succeed by default", func(t *testing.T) {
		service := settings.New[models.Setting](store, brokenCache{})

		require.NoError(t, service.Set(ctx, "name1", ptr("value2")))
	})

	t.Run("strict invalidation reports the backend failure", func(t *testing.T) {
		service := settings.New[models.Setting](store, brokenCache{}, settings.WithStrictInvalidation(true))

		err := service.Set(ctx, "name1", ptr("value3"))
		require.ErrorIs(t, err, cache.ErrBackend)

		// the store write happened regardless
		raw, err := service.GetRawSetting(ctx, "name1")
		require.NoError(t, err)
		assert.Equal(t, ptr("value3"), raw.Value)
	})

	t.Run("explicit invalidation reports the backend failure", func(t *testing.T) {
		service := settings.New[models.Setting](store, brokenCache{})

		require.ErrorIs(t, service.Invalidate("name1"), cache.ErrBackend)
		require.ErrorIs(t, service.Invalidate(), cache.ErrBackend)
	})
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.All(ctx)
	require.NoError(t, err)

	require.NoError(t, f.service.Invalidate("name1"))

	for key, want := range map[string]bool{
		settings.AllKey:       false,
		settings.Key("name1"): false,
		settings.Key("name2"): true,
	} {
		ok, err := f.cache.Has(key)
		require.NoError(t, err)
		assert.Equal(t, want, ok, key)
	}

	require.NoError(t, f.service.Invalidate())
	assert.Equal(t, 1, f.cache.Calls(cache.OpClear))

	ok, err := f.cache.Has(settings.Key("name2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaleAfterExternalWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)

	// a write that bypasses the service is only visible after invalidation
	_, err = setting.NewDefault(f.db).Set(ctx, "name1", ptr("external"))
	require.NoError(t, err)

	value, err := f.service.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("value1"), value)

	require.NoError(t, f.service.Invalidate("name1"))

	value, err = f.service.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("external"), value)
}

func TestWriteDuringRead(t *testing.T) {
	tests := []struct {
		name string
		read func(ctx context.Context, svc *settings.Default) error
	}{
		{
			name: "all",
			read: func(ctx context.Context, svc *settings.Default) error {
				_, err := svc.All(ctx)
				return err
			},
		},
		{
			name: "get",
			read: func(ctx context.Context, svc *settings.Default) error {
				_, err := svc.Get(ctx, "name1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()
			store := setting.NewDefault(db)

			_, err := store.Set(ctx, "name1", ptr("old"))
			require.NoError(t, err)

			adapter := cache.NewMemory(cache.NoTTL)
			t.Cleanup(func() { _ = adapter.Close() })

			paused := newPausingStore(store)
			reader := settings.New[models.Setting](paused, adapter)
			writer := settings.New[models.Setting](store, adapter)

			done := make(chan error, 1)
			go func() { done <- tt.read(ctx, reader) }()

			<-paused.loaded
			require.NoError(t, reader.Set(ctx, "name1", ptr("new")))
			close(paused.release)
			require.NoError(t, <-done)

			// the old value read before the write must not be cached
			value, err := writer.Get(ctx, "name1")
			require.NoError(t, err)
			assert.Equal(t, ptr("new"), value)

			all, err := writer.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]*string{"name1": ptr("new")}, all)
		})
	}
}

func TestNilAdapter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	service := settings.NewDefault(db, nil)
	assert.Equal(t, cache.BackendNone, service.Cache().Name())

	require.NoError(t, service.Set(ctx, "name1", ptr("value1")))
	value, err := service.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("value1"), value)
}

type serverSettings struct {
	URL    string `json:"url"`
	APIKey string `json:"apiKey"`
}

func TestJSON(t *testing.T) {
	f := newFixture(t, settings.WithTTL(time.Minute))
	ctx := context.Background()

	in := serverSettings{URL: "http://127.0.0.1:8081", APIKey: "secret"}
	require.NoError(t, f.service.SetJSON(ctx, "server", in))

	var out serverSettings
	require.NoError(t, f.service.GetJSON(ctx, "server", &out))
	assert.Equal(t, in, out)

	err := f.service.GetJSON(ctx, "null", &out)
	require.ErrorIs(t, err, settings.ErrNullValue)

	err = f.service.GetJSON(ctx, "name1", &out)
	require.Error(t, err)

	err = f.service.GetJSON(ctx, "missing", &out)
	require.ErrorIs(t, err, setting.ErrSettingNotFound)
}

// ownedSetting is a consumer entity with its own table.
type ownedSetting struct {
	Name  string  `gorm:"primaryKey;size:255"`
	Value *string `gorm:"type:text"`
	Owner string  `gorm:"size:64"`
}

func (ownedSetting) TableName() string { return "owned_settings" }
func (o *ownedSetting) GetName() string { return o.Name }
func (o *ownedSetting) SetName(name string) { o.Name = name }
func (o *ownedSetting) GetValue() *string { return o.Value }
func (o *ownedSetting) SetValue(value *string) { o.Value = value }

// ownedSettings extends the service with an entity specific lookup.
type ownedSettings struct {
	*settings.Service[ownedSetting, *ownedSetting]
}

func (o ownedSettings) Owner(ctx context.Context, name string) (string, error) {
	entity, err := o.GetRawSetting(ctx, name)
	if err != nil {
		return "", err
	}

	return entity.Owner, nil
}

func TestCustomFacade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store := setting.New[ownedSetting](db)
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Create(ctx, &ownedSetting{Name: "name1", Value: ptr("value1"), Owner: "ops"}))

	adapter := cache.NewMemory(cache.NoTTL)
	t.Cleanup(func() { _ = adapter.Close() })

	facade := ownedSettings{Service: settings.New[ownedSetting](store, adapter)}

	value, err := facade.Get(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, ptr("value1"), value)

	owner, err := facade.Owner(ctx, "name1")
	require.NoError(t, err)
	assert.Equal(t, "ops", owner)

	require.NoError(t, facade.Set(ctx, "name2", ptr("value2")))

	raw, err := facade.GetRawSetting(ctx, "name2")
	require.NoError(t, err)
	assert.IsType(t, &ownedSetting{}, raw)

	all, err := facade.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]*string{"name1": ptr("value1"), "name2": ptr("value2")}, all)

	// the stock table stays empty
	_, err = setting.NewDefault(db).Get(ctx, "name1")
	require.ErrorIs(t, err, setting.ErrSettingNotFound)
}
