package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "NVDA", config.DefaultTicker)
	assert.Equal(t, "sqlite", config.Storage.Type)
	assert.Equal(t, []string{"SHH", "SHZ"}, config.Resolver.PreferredExchanges)
	assert.Equal(t, 2, config.LLM.MaxRetries)
	assert.Equal(t, "5s", config.LLM.RetryDelay)
	assert.Equal(t, "7s", config.FMP.Timeout)
	assert.Equal(t, "gemini-3-flash-preview", config.Gemini.Model)
	assert.Equal(t, 8000, config.Gemini.MaxOutputTokens)
	assert.InDelta(t, 0.7, config.Gemini.Temperature, 0.0001)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
default_ticker = "AAPL"

[server]
port = 9000

[storage]
type = "file"

[storage.file]
root = "/tmp/base-cache"
`)
	override := writeConfigFile(t, "override.toml", `
[storage.file]
root = "/tmp/override-cache"

[resolver]
preferred_exchanges = ["SSE"]
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", config.DefaultTicker)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "file", config.Storage.Type)
	assert.Equal(t, "/tmp/override-cache", config.Storage.File.Root)
	assert.Equal(t, []string{"SSE"}, config.Resolver.PreferredExchanges)
	// Untouched values keep their defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "./data/stock_analysis.db", config.Storage.SQLite.Path)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := writeConfigFile(t, "bad.toml", "[server\nport = ")
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("EQUITYLENS_SERVER_PORT", "7000")
	t.Setenv("EQUITYLENS_STORAGE_TYPE", "BADGER")
	t.Setenv("GEMINI_API_KEY", "legacy-key")
	t.Setenv("EQUITYLENS_FMP_API_KEY", "fmp-key")
	t.Setenv("FMP_API_KEY", "ignored")
	t.Setenv("EQUITYLENS_RESOLVER_SOURCES", "stock_codes, fmp")
	t.Setenv("EQUITYLENS_LLM_MAX_RETRIES", "4")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, "badger", config.Storage.Type)
	assert.Equal(t, "legacy-key", config.Gemini.APIKey)
	assert.Equal(t, "fmp-key", config.FMP.APIKey)
	assert.Equal(t, []string{"stock_codes", "fmp"}, config.Resolver.Sources)
	assert.Equal(t, 4, config.LLM.MaxRetries)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8080, config.Server.Port)

	ApplyFlagOverrides(config, 9090, "0.0.0.0")
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown storage type", func(c *Config) { c.Storage.Type = "postgres" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"no resolver sources", func(c *Config) { c.Resolver.Sources = nil }},
		{"unknown resolver source", func(c *Config) { c.Resolver.Sources = []string{"yahoo"} }},
		{"bad retry delay", func(c *Config) { c.LLM.RetryDelay = "soon" }},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad warmup schedule", func(c *Config) {
			c.Warmup.Enabled = true
			c.Warmup.Schedule = "every morning"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("nope", time.Minute))
	assert.Equal(t, time.Minute, Duration("-1s", time.Minute))
}
