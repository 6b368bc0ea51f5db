// Package groq is a typed client for the Groq inference API: chat completion,
// speech-to-text (transcription and translation) and text-to-speech.
//
// Client blocks the calling goroutine for each call. AsyncClient starts each
// call in the background and returns a Future. Both share the same request
// construction and response parsing, and both are safe for concurrent use.
//
// Failures are reported as *APIError, *TransportError or *DeserializationError.
// The client never retries.
package groq

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"groqkit/internal/httpclient"
)

// DefaultEndpoint is the API base URL used when no endpoint is configured.
const DefaultEndpoint = "https://api.groq.com/openai/v1"

// Option configures a client at construction time.
type Option func(*options)

type options struct {
	endpoint   string
	httpClient *http.Client
	timeout    *time.Duration
	hooks      Hooks
	logger     *slog.Logger
}

// WithEndpoint overrides the API base URL. An empty value keeps the default.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout bounds every request, including reading the response body.
// Zero disables the timeout. On the default transport the response header
// limit follows it; a client passed with WithHTTPClient keeps its own
// transport limits and only has its overall Timeout replaced.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = &d
	}
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newEngine(apiKey string, opts []Option) *engine {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint := strings.TrimRight(o.endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	hc := o.httpClient
	switch {
	case hc == nil:
		cfg := defaultHTTPConfig(o.timeout)
		hc = httpclient.NewHTTPClient(&cfg)
	case o.timeout != nil:
		// Copy so the caller's client is left untouched.
		copied := *hc
		copied.Timeout = *o.timeout
		hc = &copied
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &engine{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: hc,
		hooks:      o.hooks,
		logger:     logger,
	}
}

func defaultHTTPConfig(timeout *time.Duration) httpclient.ClientConfig {
	cfg := httpclient.DefaultConfig()
	if timeout != nil {
		cfg.SetTimeout(*timeout)
	}
	return cfg
}

// Client is the blocking Groq client.
type Client struct {
	e *engine
}

// New creates a blocking client. No network I/O happens here.
func New(apiKey string, opts ...Option) *Client {
	return &Client{e: newEngine(apiKey, opts)}
}

// Endpoint returns the configured API base URL.
func (c *Client) Endpoint() string {
	return c.e.endpoint
}

// Async returns a non-blocking client sharing this client's configuration and connections.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{e: c.e}
}

// ChatCompletion sends a chat completion request and waits for the response.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	return c.e.chatCompletion(ctx, req)
}

// SpeechToText uploads audio for transcription, or translation into English
// when req.EnglishText is set, and waits for the text.
func (c *Client) SpeechToText(ctx context.Context, req SpeechToTextRequest) (*SpeechToTextResponse, error) {
	return c.e.speechToText(ctx, req)
}

// TextToSpeech synthesizes speech and returns the raw audio bytes.
func (c *Client) TextToSpeech(ctx context.Context, req TextToSpeechRequest) (*TextToSpeechResponse, error) {
	return c.e.textToSpeech(ctx, req)
}
