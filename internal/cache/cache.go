// Package cache stores chat completion responses keyed by request content.
// Supports a local in-memory backend and Redis for multi-instance deployments.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"groqkit/pkg/groq"
)

// DefaultKeyPrefix namespaces chat response keys.
const DefaultKeyPrefix = "groqkit:chat:"

// Cache defines the interface for response storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the cache.
	Close() error
}

// ChatKey derives the cache key for req from its wire encoding, so requests
// that differ only in omitted defaults share a key.
func ChatKey(prefix string, req groq.ChatCompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request for cache key: %w", err)
	}
	return fmt.Sprintf("%s%016x", prefix, xxhash.Sum64(body)), nil
}
