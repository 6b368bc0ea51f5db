package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite has a default limit of 999 bindable parameters per query (SQLITE_MAX_VARIABLE_NUMBER).
const (
	maxSQLiteParams      = 999
	columnsPerUsageEntry = 15
	maxEntriesPerBatch   = maxSQLiteParams / columnsPerUsageEntry
)

// sqliteTimeFormat is fixed-width so that text comparison orders timestamps.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the usage table if needed and starts the retention
// cleanup loop when retentionDays is positive.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS usage (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			operation TEXT NOT NULL,
			model TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error_kind TEXT NOT NULL DEFAULT '',
			error_type TEXT NOT NULL DEFAULT '',
			response_id TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			audio_bytes INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_usage_request_id ON usage(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_usage_operation ON usage(operation)",
		"CREATE INDEX IF NOT EXISTS idx_usage_model ON usage(model)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, CleanupInterval, store.cleanup)
	}

	return store, nil
}

// WriteBatch inserts entries in chunks that stay within SQLite's parameter limit.
// Entries whose ID already exists are skipped.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		chunk := entries[i:min(i+maxEntriesPerBatch, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerUsageEntry)
		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.RequestID,
				e.Timestamp.UTC().Format(sqliteTimeFormat),
				e.Operation,
				e.Model,
				e.Endpoint,
				e.StatusCode,
				e.DurationMS,
				e.ErrorKind,
				e.ErrorType,
				e.ResponseID,
				e.InputTokens,
				e.OutputTokens,
				e.TotalTokens,
				e.AudioBytes,
			)
		}

		query := `INSERT OR IGNORE INTO usage (id, request_id, timestamp, operation, model, endpoint,
			status_code, duration_ms, error_kind, error_type, response_id,
			input_tokens, output_tokens, total_tokens, audio_bytes) VALUES ` +
			strings.Join(placeholders, ",")

		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert usage batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}
	return nil
}

// Summary aggregates entries per operation, ordered by operation name.
func (s *SQLiteStore) Summary(ctx context.Context, since time.Time) ([]OperationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation,
			COUNT(*),
			COALESCE(SUM(CASE WHEN error_kind <> '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(audio_bytes), 0)
		FROM usage
		WHERE timestamp >= ?
		GROUP BY operation
		ORDER BY operation`,
		since.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	defer rows.Close()

	summaries := make([]OperationSummary, 0)
	for rows.Next() {
		var row OperationSummary
		if err := rows.Scan(&row.Operation, &row.Requests, &row.Errors,
			&row.InputTokens, &row.OutputTokens, &row.TotalTokens, &row.AudioBytes); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *SQLiteStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	cutoff := retentionCutoff(time.Now(), s.retentionDays).Format(sqliteTimeFormat)

	result, err := s.db.Exec("DELETE FROM usage WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old usage entries", "error", err)
		return
	}

	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected > 0 {
		slog.Info("cleaned up old usage entries", "deleted", rowsAffected)
	}
}
