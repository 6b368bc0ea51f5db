// Package usage records one ledger entry per Groq API call and stores them
// for later aggregation.
package usage

import (
	"context"
	"time"
)

// Store defines the interface for usage storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// WriteBatch writes multiple entries. Called by the Logger on flush.
	WriteBatch(ctx context.Context, entries []*Entry) error

	// Flush forces any pending writes to complete.
	Flush(ctx context.Context) error

	// Summary aggregates entries recorded at or after since, per operation.
	Summary(ctx context.Context, since time.Time) ([]OperationSummary, error)

	// Close stops background work. The database handle is owned by the storage layer.
	Close() error
}

// Entry is a single ledger record describing one finished call.
type Entry struct {
	// ID is a unique identifier for this entry (UUID)
	ID string `json:"id" bson:"_id"`

	// RequestID is the X-Request-ID the call carried, if any
	RequestID string    `json:"request_id" bson:"request_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	Operation string `json:"operation" bson:"operation"`
	Model     string `json:"model" bson:"model"`
	Endpoint  string `json:"endpoint" bson:"endpoint"`

	// StatusCode is zero when no response was received
	StatusCode int   `json:"status_code" bson:"status_code"`
	DurationMS int64 `json:"duration_ms" bson:"duration_ms"`

	// ErrorKind is empty on success; ErrorType is the API's error type when there was one
	ErrorKind string `json:"error_kind,omitempty" bson:"error_kind"`
	ErrorType string `json:"error_type,omitempty" bson:"error_type"`

	// ResponseID is the completion ID returned by the API
	ResponseID string `json:"response_id,omitempty" bson:"response_id"`

	InputTokens  int `json:"input_tokens" bson:"input_tokens"`
	OutputTokens int `json:"output_tokens" bson:"output_tokens"`
	TotalTokens  int `json:"total_tokens" bson:"total_tokens"`

	// AudioBytes is the size of synthesized audio for text-to-speech calls
	AudioBytes int `json:"audio_bytes" bson:"audio_bytes"`
}

// Failed reports whether the call ended in an error.
func (e *Entry) Failed() bool {
	return e.ErrorKind != ""
}

// OperationSummary aggregates the entries of one operation.
type OperationSummary struct {
	Operation    string `json:"operation" bson:"_id"`
	Requests     int64  `json:"requests" bson:"requests"`
	Errors       int64  `json:"errors" bson:"errors"`
	InputTokens  int64  `json:"input_tokens" bson:"input_tokens"`
	OutputTokens int64  `json:"output_tokens" bson:"output_tokens"`
	TotalTokens  int64  `json:"total_tokens" bson:"total_tokens"`
	AudioBytes   int64  `json:"audio_bytes" bson:"audio_bytes"`
}

// Config holds usage tracking configuration
type Config struct {
	// Enabled controls whether usage tracking is active
	Enabled bool

	// BufferSize is the number of entries the logger queues before dropping
	BufferSize int

	// FlushInterval is how often to flush buffered entries
	FlushInterval time.Duration

	// RetentionDays is how long to keep entries (0 = forever)
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
	}
}
