// Package httpclient builds the pooled HTTP clients used to reach the Groq API.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"groqkit/internal/version"
)

// Defaults for API calls. Audio uploads and long completions can take
// minutes, so the overall limits are generous.
const (
	DefaultTimeout               = 600 * time.Second
	DefaultResponseHeaderTimeout = 600 * time.Second

	defaultDialTimeout   = 30 * time.Second
	defaultKeepAlive     = 30 * time.Second
	defaultTLSHandshake  = 10 * time.Second
	defaultIdleConnTTL   = 90 * time.Second
	defaultMaxIdleConns  = 100
	defaultContinueDelay = time.Second
)

// ClientConfig holds the connection pool, timeout and encoding settings.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Timeout bounds a whole request, body read included. Zero means no limit.
	Timeout time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// Compression advertises brotli and gzip and decodes compressed responses.
	Compression bool

	// UserAgent is sent on requests that do not set their own.
	// Empty uses DefaultUserAgent().
	UserAgent string
}

// DefaultUserAgent identifies this build to the API.
func DefaultUserAgent() string {
	return "groqkit/" + version.Version
}

// DefaultConfig returns the defaults, with two environment overrides
// (integer seconds or a Go duration such as "10m"):
//   - HTTP_TIMEOUT
//   - HTTP_RESPONSE_HEADER_TIMEOUT
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConns,
		IdleConnTimeout:       defaultIdleConnTTL,
		Timeout:               envDuration("HTTP_TIMEOUT", DefaultTimeout),
		DialTimeout:           defaultDialTimeout,
		KeepAlive:             defaultKeepAlive,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: envDuration("HTTP_RESPONSE_HEADER_TIMEOUT", DefaultResponseHeaderTimeout),
	}
}

// SetTimeout sets the overall request limit. The response header limit never
// ends a request sooner than d: it is raised to d, or cleared when d is zero.
func (c *ClientConfig) SetTimeout(d time.Duration) {
	if d <= 0 {
		c.Timeout = 0
		c.ResponseHeaderTimeout = 0
		return
	}
	c.Timeout = d
	if c.ResponseHeaderTimeout > 0 && c.ResponseHeaderTimeout < d {
		c.ResponseHeaderTimeout = d
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// NewHTTPClient returns a client for cfg. A nil cfg uses DefaultConfig().
//
// The round tripper stack, outermost first: user agent, then optional
// decompression, then the pooled transport.
func NewHTTPClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}

	var rt http.RoundTripper = newTransport(cfg)
	if cfg.Compression {
		rt = NewDecompressingTransport(rt)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent()
	}
	rt = &userAgentTransport{base: rt, userAgent: ua}

	return &http.Client{Transport: rt, Timeout: cfg.Timeout}
}

func newTransport(cfg *ClientConfig) *http.Transport {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: defaultContinueDelay,
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
