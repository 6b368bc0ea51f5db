// Package app wires configuration into a running groqkit server and owns
// the lifecycle of everything it opens.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"groqkit/config"
	"groqkit/internal/cache"
	"groqkit/internal/httpclient"
	"groqkit/internal/logging"
	"groqkit/internal/observability"
	"groqkit/internal/server"
	"groqkit/internal/speech"
	"groqkit/internal/usage"
	"groqkit/pkg/groq"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config *config.Config
	logger *slog.Logger
	client *groq.Client
	usage  *usage.Result
	cache  cache.Cache
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config, w io.Writer) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is required")
	}

	logger, err := NewLogger(cfg.Logging, w)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	usageResult, err := usage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize usage tracking: %w", err)
	}
	app.usage = usageResult

	registry := prometheus.NewRegistry()
	hooks := []groq.Hooks{usage.NewHooks(usageResult.Logger)}
	if cfg.Metrics.Enabled {
		hooks = append(hooks, observability.NewPrometheusHooks(registry))
	}
	app.client = NewClient(cfg, logger, groq.JoinHooks(hooks...))

	responseCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		if closeErr := app.usage.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w (also: usage close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.cache = responseCache

	deps := server.Deps{
		Client:  app.client,
		Speaker: speech.NewLocal(cfg.Defaults.LocalVoice, logger),
		Defaults: server.Defaults{
			ChatModel:          cfg.Defaults.ChatModel,
			TranscriptionModel: cfg.Defaults.TranscriptionModel,
			SpeechModel:        cfg.Defaults.SpeechModel,
			SpeechVoice:        cfg.Defaults.SpeechVoice,
		},
	}
	if cfg.Usage.Enabled {
		deps.Usage = usageResult.Logger
	}
	if responseCache != nil {
		deps.Chat = cache.NewChatCompleter(app.client, responseCache, cfg.Cache.Redis.KeyPrefix, logger)
	}

	bodyLimit, err := config.ParseBodySize(cfg.Server.BodySizeLimit)
	if err != nil {
		closeErr := app.closeResources()
		return nil, errors.Join(fmt.Errorf("invalid body size limit: %w", err), closeErr)
	}

	app.server = server.New(deps, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		MetricsHandler: promhttp.HandlerFor(
			prometheus.Gatherers{registry, prometheus.DefaultGatherer},
			promhttp.HandlerOpts{},
		),
		BodySizeLimit:  bodyLimit,
		SwaggerEnabled: cfg.Server.SwaggerEnabled,
		Logger:         logger,
	})

	app.logStartupInfo()
	return app, nil
}

// NewLogger builds the logger described by cfg, writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, logging.Options{Level: level, Format: cfg.Format}), nil
}

// NewClient builds a Groq client from cfg: endpoint, timeouts and the
// pooled, optionally compressing HTTP transport.
func NewClient(cfg *config.Config, logger *slog.Logger, hooks groq.Hooks) *groq.Client {
	httpCfg := httpclient.DefaultConfig()
	if cfg.HTTP.Timeout > 0 {
		httpCfg.Timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
	}
	if cfg.HTTP.ResponseHeaderTimeout > 0 {
		httpCfg.ResponseHeaderTimeout = time.Duration(cfg.HTTP.ResponseHeaderTimeout) * time.Second
	}
	if cfg.Groq.Timeout > 0 {
		httpCfg.SetTimeout(time.Duration(cfg.Groq.Timeout) * time.Second)
	}
	httpCfg.Compression = cfg.HTTP.Compression

	return groq.New(cfg.Groq.APIKey,
		groq.WithEndpoint(cfg.Groq.Endpoint),
		groq.WithHTTPClient(httpclient.NewHTTPClient(&httpCfg)),
		groq.WithHooks(hooks),
		groq.WithLogger(logger),
	)
}

// newCache returns nil when caching is off.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	ttl := time.Duration(cfg.TTL) * time.Second
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		return cache.NewLocalCache(ttl), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.Redis.URL, TTL: ttl})
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// Client returns the Groq client the server calls.
func (a *App) Client() *groq.Client {
	return a.client
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// UsageLogger returns the usage logger interface.
func (a *App) UsageLogger() usage.LoggerInterface {
	if a.usage == nil {
		return nil
	}
	return a.usage.Logger
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return errors.New("server is not initialized")
	}
	a.logger.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			a.logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, then the response cache, then the usage ledger,
// which flushes pending entries.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns the joined failures.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.logger.Info("shutting down application...")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if err := a.closeResources(); err != nil {
		a.logger.Error("resource close error", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeResources() error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if a.usage != nil {
		if err := a.usage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("usage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Groq.APIKey == "" {
		a.logger.Warn("GROQ_API_KEY not set - every API call will be rejected upstream")
	}

	if cfg.Server.MasterKey == "" {
		a.logger.Warn("SECURITY WARNING: GROQKIT_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set GROQKIT_MASTER_KEY or bind the server to localhost only")
	} else {
		a.logger.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		a.logger.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		a.logger.Info("prometheus metrics disabled")
	}

	if cfg.Usage.Enabled {
		a.logger.Info("usage tracking enabled",
			"storage", cfg.Storage.Type,
			"buffer_size", cfg.Usage.BufferSize,
			"flush_interval", cfg.Usage.FlushInterval,
			"retention_days", cfg.Usage.RetentionDays,
		)
	} else {
		a.logger.Info("usage tracking disabled")
	}

	if a.cache != nil {
		a.logger.Info("chat response cache enabled", "type", cfg.Cache.Type, "ttl", cfg.Cache.TTL)
	}

	if cfg.Server.SwaggerEnabled {
		a.logger.Info("swagger UI enabled", "path", "/swagger/index.html")
	}
}
