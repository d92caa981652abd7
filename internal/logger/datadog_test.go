package logger_test

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPowerDNS-Admin/go-settings/internal/logger"
)

type intake struct {
	mu      sync.Mutex
	apiKeys []string
	items   []map[string]any
}

func (i *intake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body

	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = gz.Close() }()

		body = gz
	}

	var items []map[string]any
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	i.mu.Lock()
	i.apiKeys = append(i.apiKeys, r.Header.Get("DD-API-KEY"))
	i.items = append(i.items, items...)
	i.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("{}"))
}

func (i *intake) snapshot() ([]string, []map[string]any) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return append([]string(nil), i.apiKeys...), append([]map[string]any(nil), i.items...)
}

func newIntake(t *testing.T) (*intake, datadog.ServerConfigurations) {
	t.Helper()

	in := &intake{}
	srv := httptest.NewServer(in)
	t.Cleanup(srv.Close)

	return in, datadog.ServerConfigurations{{URL: srv.URL}}
}

func TestDataDogWriter(t *testing.T) {
	in, servers := newIntake(t)

	w, err := logger.NewDataDogWriter(logger.DataDog{
		APIKey:        "secret",
		Servers:       servers,
		BatchSize:     2,
		FlushInterval: time.Hour,
	}, "go-settings", "test")
	require.NoError(t, err)

	for _, line := range []string{"one\n", "two\n", "three\n"} {
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	// the third line is only sent by Close
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.Dropped())

	keys, items := in.snapshot()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"secret", "secret"}, keys)

	assert.Equal(t, "one", items[0]["message"])
	assert.Equal(t, "three", items[2]["message"])
	assert.Equal(t, "go-settings", items[0]["service"])
	assert.Equal(t, "env:test", items[0]["ddtags"])
}

func TestDataDogWriterFlushInterval(t *testing.T) {
	in, servers := newIntake(t)

	w, err := logger.NewDataDogWriter(logger.DataDog{
		APIKey:        "secret",
		ServiceName:   "settings-api",
		Servers:       servers,
		FlushInterval: 10 * time.Millisecond,
	}, "go-settings", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte(`{"level":"info"}`))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, items := in.snapshot()
		return len(items) == 1
	}, time.Second, 10*time.Millisecond)

	_, items := in.snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "settings-api", items[0]["service"])
	assert.NotContains(t, items[0], "ddtags")
}

func TestDataDogWriterAPIKey(t *testing.T) {
	_, err := logger.NewDataDogWriter(logger.DataDog{}, "go-settings", "test")
	require.ErrorIs(t, err, logger.ErrDataDogAPIKeyIsEmpty)

	err = logger.Init(logger.Log{
		LogLevel:    "info",
		ServiceName: "test",
		AppName:     "test",
		DataDog:     logger.DataDog{Enabled: true},
	})
	require.ErrorIs(t, err, logger.ErrDataDogAPIKeyIsEmpty)
}

func TestInitWithDataDog(t *testing.T) {
	in, servers := newIntake(t)

	err := logger.Init(logger.Log{
		LogLevel:    "info",
		ServiceName: "test",
		AppName:     "test",
		LogEnv:      "test",
		DataDog: logger.DataDog{
			Enabled: true,
			APIKey:  "secret",
			Servers: servers,
		},
	})
	require.NoError(t, err)

	log.Info().Msg("shipped")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	_, items := in.snapshot()
	require.Len(t, items, 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(items[0]["message"].(string)), &line))
	assert.Equal(t, "shipped", line["message"])
	assert.Equal(t, "test", line["app"])
}
