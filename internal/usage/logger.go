package usage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// BatchFlushThreshold is the batch size that triggers a write without
// waiting for the flush interval.
const BatchFlushThreshold = 100

// Logger queues entries on a channel and writes them to a Store in batches.
// A batch is written when it reaches BatchFlushThreshold, when it holds a
// failed call, or every FlushInterval. Failed calls are rare and are what an
// operator looks for first, so they reach the store without waiting.
type Logger struct {
	store  Store
	config Config
	buffer chan *Entry
	wg     sync.WaitGroup

	// mu guards closed and the buffer's closing; writers hold it shared.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewLogger starts a Logger and its background flush goroutine.
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:  store,
		config: cfg,
		buffer: make(chan *Entry, cfg.BufferSize),
	}

	l.wg.Add(1)
	go l.run()

	return l
}

// Write queues an entry without blocking. Entries arriving while the buffer
// is full are dropped and counted; entries arriving after Close are ignored.
func (l *Logger) Write(entry *Entry) {
	if entry == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		n := l.dropped.Add(1)
		slog.Warn("usage ledger buffer full, dropping entry",
			"request_id", entry.RequestID,
			"operation", entry.Operation,
			"failed", entry.Failed(),
			"dropped_total", n,
		)
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

// Summary delegates to the store. Entries still queued are not included.
func (l *Logger) Summary(ctx context.Context, since time.Time) ([]OperationSummary, error) {
	return l.store.Summary(ctx, since)
}

// Close writes every queued entry and closes the store. It is idempotent.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.buffer)
	l.mu.Unlock()

	l.wg.Wait()
	return l.store.Close()
}

func (l *Logger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	pending := make([]*Entry, 0, BatchFlushThreshold)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		l.writeBatch(pending)
		pending = make([]*Entry, 0, BatchFlushThreshold)
	}

	for {
		select {
		case entry, ok := <-l.buffer:
			if !ok {
				flush()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := l.store.Flush(ctx); err != nil {
					slog.Error("failed to flush usage store", "error", err)
				}
				cancel()
				return
			}
			pending = append(pending, entry)
			if entry.Failed() || len(pending) >= BatchFlushThreshold {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (l *Logger) writeBatch(batch []*Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write usage batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopLogger discards entries. It is used when usage tracking is disabled.
type NoopLogger struct{}

func (l *NoopLogger) Write(_ *Entry) {}

func (l *NoopLogger) Config() Config {
	return Config{Enabled: false}
}

// Summary returns ErrDisabled.
func (l *NoopLogger) Summary(_ context.Context, _ time.Time) ([]OperationSummary, error) {
	return nil, ErrDisabled
}

func (l *NoopLogger) Close() error {
	return nil
}

// ErrDisabled is returned by queries against a disabled ledger.
var ErrDisabled = errors.New("usage tracking is disabled")

// LoggerInterface is implemented by Logger and NoopLogger.
type LoggerInterface interface {
	Write(entry *Entry)
	Config() Config
	Summary(ctx context.Context, since time.Time) ([]OperationSummary, error)
	Close() error
}
