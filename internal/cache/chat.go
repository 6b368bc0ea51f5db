package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"groqkit/pkg/groq"
)

// ChatCompleter is the part of the Groq client the cache wraps.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatCompletionResponse, error)
}

// CachedChat serves repeated chat completion requests from a Cache.
// Cache failures are logged and never fail the call.
type CachedChat struct {
	next   ChatCompleter
	cache  Cache
	prefix string
	logger *slog.Logger
}

// NewChatCompleter wraps next with c. An empty prefix uses DefaultKeyPrefix.
func NewChatCompleter(next ChatCompleter, c Cache, prefix string, logger *slog.Logger) *CachedChat {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedChat{next: next, cache: c, prefix: prefix, logger: logger}
}

// ChatCompletion returns a cached response when one exists, otherwise calls
// through and caches a successful result. Streaming requests bypass the cache.
func (cc *CachedChat) ChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatCompletionResponse, error) {
	if req.IsStream() {
		return cc.next.ChatCompletion(ctx, req)
	}

	key, err := ChatKey(cc.prefix, req)
	if err != nil {
		cc.logger.WarnContext(ctx, "chat cache key failed", "error", err)
		return cc.next.ChatCompletion(ctx, req)
	}

	if data, ok, err := cc.cache.Get(ctx, key); err != nil {
		cc.logger.WarnContext(ctx, "chat cache read failed", "error", err)
	} else if ok {
		var resp groq.ChatCompletionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			cc.logger.DebugContext(ctx, "chat cache hit", "model", req.Model)
			return &resp, nil
		}
		cc.logger.WarnContext(ctx, "chat cache entry unreadable", "key", key)
	}

	resp, err := cc.next.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err != nil {
		cc.logger.WarnContext(ctx, "chat cache encode failed", "error", err)
	} else if err := cc.cache.Set(ctx, key, data); err != nil {
		cc.logger.WarnContext(ctx, "chat cache write failed", "error", err)
	}
	return resp, nil
}
