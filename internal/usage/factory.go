package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"groqkit/config"
	"groqkit/internal/storage"
)

// Result holds the usage logger and the storage it owns.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Logger  LoggerInterface
	Storage storage.Storage
}

// Close releases all resources held by the usage logger.
// Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New opens the configured storage and starts a Logger on it.
// When usage tracking is disabled it returns a NoopLogger and no storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Usage.Enabled {
		return &Result{Logger: &NoopLogger{}}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	usageStore, err := NewStore(ctx, store, cfg.Usage.RetentionDays)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Result{
		Logger:  NewLogger(usageStore, buildLoggerConfig(cfg.Usage)),
		Storage: store,
	}, nil
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	storageCfg := storage.DefaultConfig()
	if cfg.Type != "" {
		storageCfg.Type = cfg.Type
	}
	if cfg.SQLite.Path != "" {
		storageCfg.SQLite.Path = cfg.SQLite.Path
	}
	storageCfg.PostgreSQL.URL = cfg.PostgreSQL.URL
	if cfg.PostgreSQL.MaxConns > 0 {
		storageCfg.PostgreSQL.MaxConns = cfg.PostgreSQL.MaxConns
	}
	storageCfg.MongoDB.URL = cfg.MongoDB.URL
	if cfg.MongoDB.Database != "" {
		storageCfg.MongoDB.Database = cfg.MongoDB.Database
	}
	return storageCfg
}

// NewStore creates the Store matching the storage backend.
func NewStore(ctx context.Context, store storage.Storage, retentionDays int) (Store, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(usageCfg config.UsageConfig) Config {
	cfg := DefaultConfig()
	cfg.Enabled = usageCfg.Enabled
	cfg.RetentionDays = usageCfg.RetentionDays
	if usageCfg.BufferSize > 0 {
		cfg.BufferSize = usageCfg.BufferSize
	}
	if usageCfg.FlushInterval > 0 {
		cfg.FlushInterval = time.Duration(usageCfg.FlushInterval) * time.Second
	}
	return cfg
}
