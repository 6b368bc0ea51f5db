// Package config provides configuration management for the application.
//
// Values are layered: built-in defaults, then an optional config.yaml (with
// ${VAR} and ${VAR:-default} placeholders expanded), then environment
// variables, which always win. A .env file in the working directory is
// loaded into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"groqkit/pkg/groq"
)

// Config holds the application configuration
type Config struct {
	Groq     GroqConfig     `yaml:"groq"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LogConfig      `yaml:"logging"`
	HTTP     HTTPConfig     `yaml:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Usage    UsageConfig    `yaml:"usage"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// GroqConfig holds the upstream API settings
type GroqConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	// Timeout in seconds for a whole call. Zero falls back to HTTP.Timeout.
	Timeout int `yaml:"timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port      string `yaml:"port"`
	MasterKey string `yaml:"master_key"`
	// BodySizeLimit accepts a plain byte count or a K/M/G suffixed size.
	BodySizeLimit string `yaml:"body_size_limit"`
	// SwaggerEnabled serves the API docs at /swagger/index.html
	SwaggerEnabled bool `yaml:"swagger_enabled"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, text or json
}

// HTTPConfig holds outbound HTTP client settings, in seconds
type HTTPConfig struct {
	Timeout               int  `yaml:"timeout"`
	ResponseHeaderTimeout int  `yaml:"response_header_timeout"`
	Compression           bool `yaml:"compression"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// UsageConfig holds call ledger settings
type UsageConfig struct {
	Enabled       bool `yaml:"enabled"`
	BufferSize    int  `yaml:"buffer_size"`
	FlushInterval int  `yaml:"flush_interval"` // seconds
	RetentionDays int  `yaml:"retention_days"` // 0 keeps entries forever
}

// StorageConfig selects and configures the ledger database
type StorageConfig struct {
	Type       string           `yaml:"type"` // sqlite, postgresql or mongodb
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLConfig holds PostgreSQL settings
type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBConfig holds MongoDB settings
type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// CacheConfig holds chat response cache settings
type CacheConfig struct {
	Type  string      `yaml:"type"` // none, local or redis
	TTL   int         `yaml:"ttl"`  // seconds
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultsConfig holds the models and voices used when a caller names none
type DefaultsConfig struct {
	ChatModel          string `yaml:"chat_model"`
	TranscriptionModel string `yaml:"transcription_model"`
	SpeechModel        string `yaml:"speech_model"`
	SpeechVoice        string `yaml:"speech_voice"`
	LocalVoice         string `yaml:"local_voice"`
}

// configPaths are tried in order; the first existing file is used.
var configPaths = []string{"config/config.yaml", "config.yaml"}

func buildDefaultConfig() *Config {
	return &Config{
		Groq: GroqConfig{
			Endpoint: groq.DefaultEndpoint,
		},
		Server: ServerConfig{
			Port:           "8080",
			BodySizeLimit:  "25M",
			SwaggerEnabled: true,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Usage: UsageConfig{
			BufferSize:    1000,
			FlushInterval: 5,
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/groqkit.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBConfig{
				Database: "groqkit",
			},
		},
		Cache: CacheConfig{
			Type: "none",
			TTL:  3600,
			Redis: RedisConfig{
				KeyPrefix: "groqkit:chat:",
			},
		},
		Defaults: DefaultsConfig{
			ChatModel:          "llama-3.3-70b-versatile",
			TranscriptionModel: "whisper-large-v3",
			SpeechModel:        "playai-tts",
			SpeechVoice:        "Fritz-PlayAI",
			LocalVoice:         "ava",
		},
	}
}

// Default returns the built-in configuration, before any file or environment is applied.
func Default() *Config {
	return buildDefaultConfig()
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Optional; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString resolves ${VAR} and ${VAR:-default}. A placeholder without a
// default whose variable is unset or empty is left as written.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides copies set environment variables onto cfg. Malformed
// numeric or boolean values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"GROQ_API_KEY", &cfg.Groq.APIKey},
		{"GROQ_ENDPOINT", &cfg.Groq.Endpoint},
		{"PORT", &cfg.Server.Port},
		{"GROQKIT_MASTER_KEY", &cfg.Server.MasterKey},
		{"BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"METRICS_ENDPOINT", &cfg.Metrics.Endpoint},
		{"STORAGE_TYPE", &cfg.Storage.Type},
		{"SQLITE_PATH", &cfg.Storage.SQLite.Path},
		{"POSTGRES_URL", &cfg.Storage.PostgreSQL.URL},
		{"MONGODB_URL", &cfg.Storage.MongoDB.URL},
		{"MONGODB_DATABASE", &cfg.Storage.MongoDB.Database},
		{"CACHE_TYPE", &cfg.Cache.Type},
		{"REDIS_URL", &cfg.Cache.Redis.URL},
		{"REDIS_KEY_PREFIX", &cfg.Cache.Redis.KeyPrefix},
		{"GROQ_CHAT_MODEL", &cfg.Defaults.ChatModel},
		{"GROQ_TRANSCRIPTION_MODEL", &cfg.Defaults.TranscriptionModel},
		{"GROQ_SPEECH_MODEL", &cfg.Defaults.SpeechModel},
		{"GROQ_SPEECH_VOICE", &cfg.Defaults.SpeechVoice},
		{"LOCAL_VOICE", &cfg.Defaults.LocalVoice},
	}
	for _, s := range strs {
		if val := os.Getenv(s.key); val != "" {
			*s.dst = val
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"GROQ_TIMEOUT", &cfg.Groq.Timeout},
		{"HTTP_TIMEOUT", &cfg.HTTP.Timeout},
		{"HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout},
		{"USAGE_BUFFER_SIZE", &cfg.Usage.BufferSize},
		{"USAGE_FLUSH_INTERVAL", &cfg.Usage.FlushInterval},
		{"USAGE_RETENTION_DAYS", &cfg.Usage.RetentionDays},
		{"POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns},
		{"CACHE_TTL", &cfg.Cache.TTL},
	}
	for _, i := range ints {
		val := os.Getenv(i.key)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be an integer", i.key, val)
		}
		*i.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"HTTP_COMPRESSION", &cfg.HTTP.Compression},
		{"METRICS_ENABLED", &cfg.Metrics.Enabled},
		{"USAGE_ENABLED", &cfg.Usage.Enabled},
		{"SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled},
	}
	for _, b := range bools {
		val := os.Getenv(b.key)
		if val == "" {
			continue
		}
		v, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be a boolean", b.key, val)
		}
		*b.dst = v
	}

	return nil
}

// Validate reports the first configuration value that cannot be used.
func (c *Config) Validate() error {
	if _, err := ParseBodySize(c.Server.BodySizeLimit); err != nil {
		return fmt.Errorf("server.body_size_limit: %w", err)
	}

	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	switch c.Storage.Type {
	case "sqlite", "postgresql", "mongodb":
	default:
		return fmt.Errorf("storage.type: unknown storage type %q", c.Storage.Type)
	}
	if c.Usage.Enabled {
		switch {
		case c.Storage.Type == "postgresql" && c.Storage.PostgreSQL.URL == "":
			return errors.New("storage.postgresql.url is required when usage tracking uses postgresql")
		case c.Storage.Type == "mongodb" && c.Storage.MongoDB.URL == "":
			return errors.New("storage.mongodb.url is required when usage tracking uses mongodb")
		}
		if c.Usage.BufferSize <= 0 {
			return fmt.Errorf("usage.buffer_size must be positive, got %d", c.Usage.BufferSize)
		}
	}

	switch c.Cache.Type {
	case "", "none", "local":
	case "redis":
		if c.Cache.Redis.URL == "" {
			return errors.New("cache.redis.url is required when cache.type is redis")
		}
	default:
		return fmt.Errorf("cache.type: unknown cache type %q", c.Cache.Type)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		return fmt.Errorf("metrics.endpoint must start with '/', got %q", c.Metrics.Endpoint)
	}
	return nil
}

// ParseBodySize converts sizes such as "10M", "512K", "1G" or "1048576" to bytes.
func ParseBodySize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, errors.New("empty size")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}
