package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpandString tests the expandString function with various scenarios
func TestExpandString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "string without placeholders",
			input:    "simple-string",
			expected: "simple-string",
		},
		{
			name:     "simple variable expansion",
			input:    "${GROQ_KEY_T}",
			envVars:  map[string]string{"GROQ_KEY_T": "gsk-12345"},
			expected: "gsk-12345",
		},
		{
			name:     "multiple variables",
			input:    "${SCHEME_T}://${HOST_T}:${PORT_T}",
			envVars:  map[string]string{"SCHEME_T": "https", "HOST_T": "api.groq.com", "PORT_T": "443"},
			expected: "https://api.groq.com:443",
		},
		{
			name:     "default used when variable missing",
			input:    "${GROQ_KEY_T:-default-key}",
			expected: "default-key",
		},
		{
			name:     "default used when variable empty",
			input:    "${GROQ_KEY_T:-default-key}",
			envVars:  map[string]string{"GROQ_KEY_T": ""},
			expected: "default-key",
		},
		{
			name:     "variable wins over default",
			input:    "${GROQ_KEY_T:-default-key}",
			envVars:  map[string]string{"GROQ_KEY_T": "gsk-real"},
			expected: "gsk-real",
		},
		{
			name:     "unresolved variable without default is kept",
			input:    "${MISSING_T}",
			expected: "${MISSING_T}",
		},
		{
			name:     "default with colon and slashes",
			input:    "${URL_T:-http://localhost:8080}/v1",
			expected: "http://localhost:8080/v1",
		},
		{
			name:     "empty default",
			input:    "${MASTER_KEY_T:-}",
			expected: "",
		},
		{
			name:     "mixed resolved and unresolved",
			input:    "${RESOLVED_T}:${UNRESOLVED_T:-fallback}:${MISSING_T}",
			envVars:  map[string]string{"RESOLVED_T": "value1"},
			expected: "value1:fallback:${MISSING_T}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, expandString(tt.input))
		})
	}
}

// TestApplyEnvOverrides tests the applyEnvOverrides function
func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "groq settings",
			envVars: map[string]string{"GROQ_API_KEY": "gsk-test", "GROQ_ENDPOINT": "http://localhost:9000/v1", "GROQ_TIMEOUT": "45"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gsk-test", cfg.Groq.APIKey)
				assert.Equal(t, "http://localhost:9000/v1", cfg.Groq.Endpoint)
				assert.Equal(t, 45, cfg.Groq.Timeout)
			},
		},
		{
			name:    "server settings",
			envVars: map[string]string{"PORT": "3000", "GROQKIT_MASTER_KEY": "my-secret", "BODY_SIZE_LIMIT": "10M"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "3000", cfg.Server.Port)
				assert.Equal(t, "my-secret", cfg.Server.MasterKey)
				assert.Equal(t, "10M", cfg.Server.BodySizeLimit)
			},
		},
		{
			name:    "storage overrides",
			envVars: map[string]string{"STORAGE_TYPE": "postgresql", "POSTGRES_URL": "postgres://localhost/test", "POSTGRES_MAX_CONNS": "20"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgresql", cfg.Storage.Type)
				assert.Equal(t, "postgres://localhost/test", cfg.Storage.PostgreSQL.URL)
				assert.Equal(t, 20, cfg.Storage.PostgreSQL.MaxConns)
			},
		},
		{
			name:    "bool overrides",
			envVars: map[string]string{"METRICS_ENABLED": "true", "USAGE_ENABLED": "1", "HTTP_COMPRESSION": "false"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Metrics.Enabled)
				assert.True(t, cfg.Usage.Enabled)
				assert.False(t, cfg.HTTP.Compression)
			},
		},
		{
			name:    "cache overrides",
			envVars: map[string]string{"CACHE_TYPE": "redis", "REDIS_URL": "redis://localhost:6379", "CACHE_TTL": "60"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "redis", cfg.Cache.Type)
				assert.Equal(t, "redis://localhost:6379", cfg.Cache.Redis.URL)
				assert.Equal(t, 60, cfg.Cache.TTL)
			},
		},
		{
			name:    "model defaults",
			envVars: map[string]string{"GROQ_CHAT_MODEL": "llama3-8b-8192", "LOCAL_VOICE": "Samantha"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "llama3-8b-8192", cfg.Defaults.ChatModel)
				assert.Equal(t, "Samantha", cfg.Defaults.LocalVoice)
				assert.Equal(t, "whisper-large-v3", cfg.Defaults.TranscriptionModel)
			},
		},
		{
			name: "no env vars set preserves defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, 600, cfg.HTTP.Timeout)
				assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Groq.Endpoint)
				assert.Equal(t, "sqlite", cfg.Storage.Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := buildDefaultConfig()
			require.NoError(t, applyEnvOverrides(cfg))
			tt.check(t, cfg)
		})
	}
}

func TestApplyEnvOverrides_RejectsMalformedValues(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		t.Setenv("USAGE_BUFFER_SIZE", "lots")
		assert.ErrorContains(t, applyEnvOverrides(buildDefaultConfig()), "USAGE_BUFFER_SIZE")
	})
	t.Run("boolean", func(t *testing.T) {
		t.Setenv("METRICS_ENABLED", "maybe")
		assert.ErrorContains(t, applyEnvOverrides(buildDefaultConfig()), "METRICS_ENABLED")
	})
}

func TestParseBodySize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "10M", want: 10 << 20},
		{input: "512K", want: 512 << 10},
		{input: "1g", want: 1 << 30},
		{input: "1048576", want: 1048576},
		{input: " 2m ", want: 2 << 20},
		{input: "", wantErr: true},
		{input: "M", wantErr: true},
		{input: "-5K", wantErr: true},
		{input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBodySize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(cfg *Config) {}},
		{name: "bad body size", mutate: func(cfg *Config) { cfg.Server.BodySizeLimit = "huge" }, wantErr: "body_size_limit"},
		{name: "bad log format", mutate: func(cfg *Config) { cfg.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "bad storage type", mutate: func(cfg *Config) { cfg.Storage.Type = "dynamo" }, wantErr: "storage.type"},
		{
			name: "postgres usage without url",
			mutate: func(cfg *Config) {
				cfg.Usage.Enabled = true
				cfg.Storage.Type = "postgresql"
			},
			wantErr: "storage.postgresql.url",
		},
		{
			name: "postgres without usage needs no url",
			mutate: func(cfg *Config) {
				cfg.Storage.Type = "postgresql"
			},
		},
		{name: "redis without url", mutate: func(cfg *Config) { cfg.Cache.Type = "redis" }, wantErr: "cache.redis.url"},
		{name: "unknown cache", mutate: func(cfg *Config) { cfg.Cache.Type = "memcached" }, wantErr: "cache.type"},
		{
			name: "metrics path must be absolute",
			mutate: func(cfg *Config) {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Endpoint = "metrics"
			},
			wantErr: "metrics.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// chdirTemp runs the test from an empty directory so no stray config.yaml
// or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Defaults.ChatModel)
}

func TestLoad_YAMLWithPlaceholders(t *testing.T) {
	dir := chdirTemp(t)
	content := `
groq:
  api_key: "${TEST_GROQ_KEY_LOAD:-default-key}"
server:
  port: "${TEST_PORT_LOAD:-9999}"
cache:
  type: local
  ttl: 120
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("TEST_GROQ_KEY_LOAD", "")
		t.Setenv("TEST_PORT_LOAD", "")
		t.Setenv("PORT", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "default-key", cfg.Groq.APIKey)
		assert.Equal(t, "9999", cfg.Server.Port)
		assert.Equal(t, "local", cfg.Cache.Type)
		assert.Equal(t, 120, cfg.Cache.TTL)
		// Untouched sections keep their defaults.
		assert.Equal(t, "whisper-large-v3", cfg.Defaults.TranscriptionModel)
	})

	t.Run("env placeholders", func(t *testing.T) {
		t.Setenv("TEST_GROQ_KEY_LOAD", "gsk-real")
		t.Setenv("TEST_PORT_LOAD", "1111")
		t.Setenv("PORT", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "gsk-real", cfg.Groq.APIKey)
		assert.Equal(t, "1111", cfg.Server.Port)
	})

	t.Run("env override beats file", func(t *testing.T) {
		t.Setenv("PORT", "2222")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "2222", cfg.Server.Port)
	})
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_MASTER=from-dotenv\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  master_key: \"${TEST_DOTENV_MASTER}\"\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("TEST_DOTENV_MASTER") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.MasterKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	assert.ErrorContains(t, err, "parse config.yaml")
}

func TestLoad_ExampleConfig(t *testing.T) {
	example, err := os.ReadFile("config.example.yaml")
	require.NoError(t, err)

	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), example, 0o644))
	for _, key := range []string{"GROQ_API_KEY", "GROQ_ENDPOINT", "PORT", "GROQKIT_MASTER_KEY", "POSTGRES_URL", "MONGODB_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Groq.APIKey)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Groq.Endpoint)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.HTTP.Compression)
	assert.True(t, cfg.Usage.Enabled)
	assert.Equal(t, "local", cfg.Cache.Type)
	assert.Equal(t, "groqkit:chat:", cfg.Cache.Redis.KeyPrefix)
}
