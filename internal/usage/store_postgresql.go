package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertUsageSQL = `
	INSERT INTO usage (id, request_id, timestamp, operation, model, endpoint,
		status_code, duration_ms, error_kind, error_type, response_id,
		input_tokens, output_tokens, total_tokens, audio_bytes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO NOTHING`

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewPostgreSQLStore creates the usage table if needed and starts the
// retention cleanup loop when retentionDays is positive.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS usage (
			id UUID PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			operation TEXT NOT NULL,
			model TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
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
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &PostgreSQLStore{
		pool:          pool,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, CleanupInterval, store.cleanup)
	}

	return store, nil
}

// WriteBatch queues all inserts in one pgx.Batch inside a transaction.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertUsageSQL,
			e.ID, e.RequestID, e.Timestamp, e.Operation, e.Model, e.Endpoint,
			e.StatusCode, e.DurationMS, e.ErrorKind, e.ErrorType, e.ResponseID,
			e.InputTokens, e.OutputTokens, e.TotalTokens, e.AudioBytes)
	}

	results := tx.SendBatch(ctx, batch)
	var errs []error
	for _, e := range entries {
		if _, err := results.Exec(); err != nil {
			slog.Warn("failed to insert usage entry in batch", "error", err, "id", e.ID)
			errs = append(errs, fmt.Errorf("insert %s: %w", e.ID, err))
		}
	}
	if err := results.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to insert usage batch of %d entries: %w", len(entries), errors.Join(errs...))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Summary aggregates entries per operation, ordered by operation name.
func (s *PostgreSQLStore) Summary(ctx context.Context, since time.Time) ([]OperationSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT operation,
			COUNT(*),
			COUNT(*) FILTER (WHERE error_kind <> ''),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(audio_bytes), 0)
		FROM usage
		WHERE timestamp >= $1
		GROUP BY operation
		ORDER BY operation`, since)
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

// Flush is a no-op for PostgreSQL as writes are synchronous.
func (s *PostgreSQLStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *PostgreSQLStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.pool.Exec(ctx, "DELETE FROM usage WHERE timestamp < $1", retentionCutoff(time.Now(), s.retentionDays))
	if err != nil {
		slog.Error("failed to cleanup old usage entries", "error", err)
		return
	}

	if result.RowsAffected() > 0 {
		slog.Info("cleaned up old usage entries", "deleted", result.RowsAffected())
	}
}
