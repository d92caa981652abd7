package cache

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// operation names used as metric labels and call counter keys.
const (
	OpHas    = "has"
	OpGet    = "get"
	OpSet    = "set"
	OpDelete = "delete"
	OpClear  = "clear"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultOK    = "ok"
	resultError = "error"
)

var operations = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "settings_cache_operations_total",
		Help: "Number of cache operations, differentiated by backend, operation and result.",
	},
	[]string{"backend", "op", "result"},
)

// Instrumented decorates an Adapter with prometheus counters and per operation call counts.
type Instrumented struct {
	next Adapter

	mu    sync.Mutex
	calls map[string]int
}

// Instrument wraps next.
func Instrument(next Adapter) *Instrumented {
	return &Instrumented{
		next:  next,
		calls: make(map[string]int),
	}
}

// Calls returns how often op was invoked on this adapter.
func (i *Instrumented) Calls(op string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.calls[op]
}

// Unwrap returns the decorated adapter.
func (i *Instrumented) Unwrap() Adapter { return i.next }

// Name implements Adapter.
func (i *Instrumented) Name() string { return i.next.Name() }

// Has implements Adapter.
func (i *Instrumented) Has(key string) (bool, error) {
	ok, err := i.next.Has(key)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	i.observe(OpHas, result)

	return ok, err
}

// Get implements Adapter.
func (i *Instrumented) Get(key string) ([]byte, error) {
	val, err := i.next.Get(key)

	result := resultHit
	switch {
	case errors.Is(err, ErrMiss):
		result = resultMiss
	case err != nil:
		result = resultError
	}
	i.observe(OpGet, result)

	return val, err
}

// Set implements Adapter.
func (i *Instrumented) Set(key string, value []byte, ttl time.Duration) error {
	err := i.next.Set(key, value, ttl)
	i.observe(OpSet, okOrError(err))

	return err
}

// Delete implements Adapter.
func (i *Instrumented) Delete(keys ...string) error {
	err := i.next.Delete(keys...)
	i.observe(OpDelete, okOrError(err))

	return err
}

// Clear implements Adapter.
func (i *Instrumented) Clear() error {
	err := i.next.Clear()
	i.observe(OpClear, okOrError(err))

	return err
}

func (i *Instrumented) observe(op, result string) {
	operations.WithLabelValues(i.next.Name(), op, result).Inc()

	i.mu.Lock()
	i.calls[op]++
	i.mu.Unlock()
}

func okOrError(err error) string {
	if err != nil {
		return resultError
	}

	return resultOK
}

// Close closes the decorated adapter if it holds resources.
func (i *Instrumented) Close() error {
	if c, ok := i.next.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
