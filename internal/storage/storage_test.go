package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "dynamodb"})
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestNew_RequiresURLs(t *testing.T) {
	_, err := New(context.Background(), Config{Type: TypePostgreSQL})
	assert.ErrorContains(t, err, "PostgreSQL URL is required")

	_, err = New(context.Background(), Config{Type: TypeMongoDB})
	assert.ErrorContains(t, err, "MongoDB URL is required")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, TypeSQLite, cfg.Type)
	assert.Equal(t, "data/groqkit.db", cfg.SQLite.Path)
	assert.Equal(t, "groqkit", cfg.MongoDB.Database)
}

func TestSQLite_InMemory(t *testing.T) {
	store, err := New(context.Background(), Config{Type: TypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, TypeSQLite, store.Type())
	assert.Nil(t, store.PostgreSQLPool())
	assert.Nil(t, store.MongoDatabase())

	db := store.SQLiteDB()
	_, err = db.Exec(`CREATE TABLE t (v TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (v) VALUES ('x')`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	store, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	defer store.Close()

	db := store.SQLiteDB()
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_usage (id TEXT PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)

	const goroutines = 8
	const insertsPerGoroutine = 40

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*insertsPerGoroutine)

	for i := range goroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range insertsPerGoroutine {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, err := db.ExecContext(ctx, `INSERT INTO test_usage (id, data) VALUES (?, ?)`,
					fmt.Sprintf("%d-%d", id, j), "payload")
				cancel()
				if err != nil {
					errs <- fmt.Errorf("goroutine %d insert %d: %w", id, j, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM test_usage").Scan(&count))
	assert.Equal(t, goroutines*insertsPerGoroutine, count)
}
