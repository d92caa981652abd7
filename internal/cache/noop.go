package cache

import "time"

// BackendNone disables caching.
const BackendNone = "none"

// Noop is used when caching is disabled. Every read misses.
type Noop struct{}

// Name implements Adapter.
func (Noop) Name() string { return BackendNone }

// Has implements Adapter.
func (Noop) Has(string) (bool, error) { return false, nil }

// Get implements Adapter.
func (Noop) Get(string) ([]byte, error) { return nil, ErrMiss }

// Set implements Adapter.
func (Noop) Set(string, []byte, time.Duration) error { return nil }

// Delete implements Adapter.
func (Noop) Delete(...string) error { return nil }

// Clear implements Adapter.
func (Noop) Clear() error { return nil }
