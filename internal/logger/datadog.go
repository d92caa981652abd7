package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

const (
	submitLogOperation = "v2.LogsApi.SubmitLog"

	defaultDataDogTimeout   = 5 * time.Second
	defaultDataDogBatchSize = 100
	defaultDataDogFlush     = 2 * time.Second
	defaultDataDogSite      = "datadoghq.com"
	dataDogSource           = "go"
	dataDogQueueFactor      = 10
)

// DataDogWriter ships log lines to the Datadog logs intake in batches.
// Write never blocks: lines are dropped when the queue is full.
type DataDogWriter struct {
	api      *datadogV2.LogsApi
	ctx      context.Context //nolint:containedctx // carries api keys and server variables
	cfg      DataDog
	service  string
	tags     string
	hostname string

	mu      sync.RWMutex
	closed  bool
	lines   chan string
	done    chan struct{}
	dropped atomic.Int64
}

// NewDataDogWriter starts the background sender. Close flushes pending lines.
func NewDataDogWriter(cfg DataDog, service, env string) (*DataDogWriter, error) {
	if cfg.APIKey == "" {
		return nil, ErrDataDogAPIKeyIsEmpty
	}

	if cfg.ServiceName != "" {
		service = cfg.ServiceName
	}

	if cfg.Site == "" {
		cfg.Site = defaultDataDogSite
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultDataDogTimeout
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultDataDogBatchSize
	}

	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = defaultDataDogFlush
	}

	configuration := datadog.NewConfiguration()
	if len(cfg.Servers) > 0 {
		configuration.Servers = cfg.Servers
		configuration.OperationServers[submitLogOperation] = cfg.Servers
	}

	ctx := context.WithValue(
		context.Background(),
		datadog.ContextAPIKeys,
		map[string]datadog.APIKey{"apiKeyAuth": {Key: cfg.APIKey}},
	)
	ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{"site": cfg.Site})

	hostname, _ := os.Hostname()

	var tags []string
	if env != "" {
		tags = append(tags, "env:"+env)
	}

	w := &DataDogWriter{
		api:      datadogV2.NewLogsApi(datadog.NewAPIClient(configuration)),
		ctx:      ctx,
		cfg:      cfg,
		service:  service,
		tags:     strings.Join(tags, ","),
		hostname: hostname,
		lines:    make(chan string, cfg.BatchSize*dataDogQueueFactor),
		done:     make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Write implements io.Writer. Lines written after Close are dropped.
func (w *DataDogWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.dropped.Add(1)
		return len(p), nil
	}

	select {
	case w.lines <- line:
	default:
		w.dropped.Add(1)
	}

	return len(p), nil
}

// Dropped returns the number of lines lost because the queue was full or the writer was closed.
func (w *DataDogWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close sends the remaining lines and stops the sender.
func (w *DataDogWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()

	<-w.done

	return nil
}

func (w *DataDogWriter) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]string, 0, w.cfg.BatchSize)

	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.send(batch)
				return
			}

			batch = append(batch, line)
			if len(batch) >= w.cfg.BatchSize {
				w.send(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			w.send(batch)
			batch = batch[:0]
		}
	}
}

func (w *DataDogWriter) send(batch []string) {
	if len(batch) == 0 {
		return
	}

	items := make([]datadogV2.HTTPLogItem, 0, len(batch))
	for _, line := range batch {
		item := datadogV2.HTTPLogItem{
			Ddsource: datadog.PtrString(dataDogSource),
			Hostname: datadog.PtrString(w.hostname),
			Message:  line,
			Service:  datadog.PtrString(w.service),
		}
		if w.tags != "" {
			item.Ddtags = datadog.PtrString(w.tags)
		}

		items = append(items, item)
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.Timeout)
	defer cancel()

	// the global logger may write here, so failures go to stderr
	if _, _, err := w.api.SubmitLog(ctx, items); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "datadog: can't submit %d log lines: %v\n", len(items), err)
	}
}
