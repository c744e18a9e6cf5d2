// Package common provides configuration, logging and ticker normalization shared by every package.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment   string           `toml:"environment"`                               // "development" or "production"
	DefaultTicker string           `toml:"default_ticker" validate:"required"`        // Ticker the root path redirects to
	Server        ServerConfig     `toml:"server"`
	Storage       StorageConfig    `toml:"storage"`
	FMP           FMPConfig        `toml:"fmp"`
	StockCodes    StockCodesConfig `toml:"stock_codes"`
	Resolver      ResolverConfig   `toml:"resolver"`
	Gemini        GeminiConfig     `toml:"gemini"`
	Claude        ClaudeConfig     `toml:"claude"`
	LLM           LLMConfig        `toml:"llm"`
	Prompts       PromptsConfig    `toml:"prompts"`
	Warmup        WarmupConfig     `toml:"warmup"`
	Logging       LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

// StorageConfig selects and configures the cache backend
type StorageConfig struct {
	Type   string       `toml:"type" validate:"oneof=sqlite file badger"` // Cache backend: "sqlite", "file" or "badger"
	SQLite SQLiteConfig `toml:"sqlite"`
	File   FileConfig   `toml:"file"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path"`            // Database file path
	CacheSizeMB   int    `toml:"cache_size_mb"`   // Page cache size
	BusyTimeoutMS int    `toml:"busy_timeout_ms"` // Wait on locked database before failing
	WALMode       bool   `toml:"wal_mode"`        // Enable write-ahead logging
}

// FileConfig represents directory-of-files cache configuration
type FileConfig struct {
	Root string `toml:"root"` // Cache root; one sub-directory per ticker
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FMPConfig configures the Financial Modeling Prep symbol search client
type FMPConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`    // Short fixed timeout for symbol search (default: "7s")
	RateLimit int    `toml:"rate_limit"` // Requests per second
}

// StockCodesConfig configures the offline stock code directory
type StockCodesConfig struct {
	Dir string `toml:"dir"` // Directory holding stock_code_*.json files
}

// ResolverConfig controls ticker identity resolution
type ResolverConfig struct {
	Sources            []string `toml:"sources" validate:"min=1,dive,oneof=fmp stock_codes"` // Symbol sources, tried in order
	PreferredExchanges []string `toml:"preferred_exchanges"`                                 // Exchanges favoured in prefix matching
	DomesticExchanges  []string `toml:"domestic_exchanges"`                                  // Exchanges that skip the localized-name call
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey          string  `toml:"api_key"`           // Google Gemini API key
	Model           string  `toml:"model"`             // Model for generation (default: "gemini-3-flash-preview")
	Timeout         string  `toml:"timeout"`           // Per-attempt timeout as duration string (default: "3m")
	Temperature     float32 `toml:"temperature"`       // Generation temperature (default: 0.7)
	MaxOutputTokens int     `toml:"max_output_tokens"` // Output token cap (default: 8000)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains provider selection and the generation retry policy
type LLMConfig struct {
	Provider   LLMProvider `toml:"provider" validate:"oneof=gemini claude"` // Default provider (default: "gemini")
	MaxRetries int         `toml:"max_retries" validate:"min=0,max=10"`     // Retries after the first attempt (default: 2)
	RetryDelay string      `toml:"retry_delay"`                             // Fixed delay between attempts (default: "5s")
}

// PromptsConfig points at the prompt template file
type PromptsConfig struct {
	Path string `toml:"path" validate:"required"`
}

// WarmupConfig schedules background section generation for a watchlist
type WarmupConfig struct {
	Enabled  bool     `toml:"enabled"`
	Schedule string   `toml:"schedule"` // Cron schedule (5 fields)
	Tickers  []string `toml:"tickers"`
	Sections []string `toml:"sections"` // Empty means every section
	Force    bool     `toml:"force"`    // Regenerate even when cached
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`                                       // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                  // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment:   "development",
		DefaultTicker: "NVDA",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path:          "./data/stock_analysis.db",
				CacheSizeMB:   16,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			File: FileConfig{
				Root: "./cache",
			},
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
		},
		FMP: FMPConfig{
			BaseURL:   "https://financialmodelingprep.com/stable",
			Timeout:   "7s",
			RateLimit: 5,
		},
		StockCodes: StockCodesConfig{
			Dir: "./stock_code",
		},
		Resolver: ResolverConfig{
			Sources:            []string{"fmp"},
			PreferredExchanges: []string{"SHH", "SHZ"},
			DomesticExchanges:  []string{"NYSE", "NASDAQ", "AMEX", "NYSEARCA", "BATS", "OTC"},
		},
		Gemini: GeminiConfig{
			Model:           "gemini-3-flash-preview",
			Timeout:         "3m",
			Temperature:     0.7,
			MaxOutputTokens: 8000,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			Timeout:     "3m",
			Temperature: 0.7,
			MaxTokens:   8000,
		},
		LLM: LLMConfig{
			Provider:   LLMProviderGemini,
			MaxRetries: 2,
			RetryDelay: "5s",
		},
		Prompts: PromptsConfig{
			Path: "./prompts/prompts.yaml",
		},
		Warmup: WarmupConfig{
			Enabled:  false,
			Schedule: "0 6 * * 1-5", // Weekdays before the Asian open
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EQUITYLENS_ENV"); env != "" {
		config.Environment = env
	}
	if ticker := os.Getenv("EQUITYLENS_DEFAULT_TICKER"); ticker != "" {
		config.DefaultTicker = ticker
	}

	// Server configuration
	if port := os.Getenv("EQUITYLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EQUITYLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if storageType := os.Getenv("EQUITYLENS_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = strings.ToLower(storageType)
	}
	if sqlitePath := os.Getenv("EQUITYLENS_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if fileRoot := os.Getenv("EQUITYLENS_FILE_ROOT"); fileRoot != "" {
		config.Storage.File.Root = fileRoot
	}
	if badgerPath := os.Getenv("EQUITYLENS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Symbol search (FMP_API_KEY kept for existing .env files)
	if apiKey := os.Getenv("EQUITYLENS_FMP_API_KEY"); apiKey != "" {
		config.FMP.APIKey = apiKey
	} else if apiKey := os.Getenv("FMP_API_KEY"); apiKey != "" {
		config.FMP.APIKey = apiKey
	}
	if timeout := os.Getenv("EQUITYLENS_FMP_TIMEOUT"); timeout != "" {
		config.FMP.Timeout = timeout
	}
	if dir := os.Getenv("EQUITYLENS_STOCK_CODES_DIR"); dir != "" {
		config.StockCodes.Dir = dir
	}
	if sources := os.Getenv("EQUITYLENS_RESOLVER_SOURCES"); sources != "" {
		if list := splitList(sources); len(list) > 0 {
			config.Resolver.Sources = list
		}
	}
	if preferred := os.Getenv("EQUITYLENS_RESOLVER_PREFERRED_EXCHANGES"); preferred != "" {
		if list := splitList(preferred); len(list) > 0 {
			config.Resolver.PreferredExchanges = list
		}
	}

	// Gemini configuration (GEMINI_API_KEY kept for existing .env files)
	if apiKey := os.Getenv("EQUITYLENS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("EQUITYLENS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("EQUITYLENS_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if temperature := os.Getenv("EQUITYLENS_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("EQUITYLENS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	} else if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("EQUITYLENS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Generation policy
	if provider := os.Getenv("EQUITYLENS_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(strings.ToLower(provider))
	}
	if maxRetries := os.Getenv("EQUITYLENS_LLM_MAX_RETRIES"); maxRetries != "" {
		if n, err := strconv.Atoi(maxRetries); err == nil {
			config.LLM.MaxRetries = n
		}
	}
	if retryDelay := os.Getenv("EQUITYLENS_LLM_RETRY_DELAY"); retryDelay != "" {
		config.LLM.RetryDelay = retryDelay
	}

	if promptsPath := os.Getenv("EQUITYLENS_PROMPTS_PATH"); promptsPath != "" {
		config.Prompts.Path = promptsPath
	}

	// Logging configuration
	if level := os.Getenv("EQUITYLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("EQUITYLENS_LOG_OUTPUT"); output != "" {
		if list := splitList(output); len(list) > 0 {
			config.Logging.Output = list
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints, duration strings and the warmup schedule
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"fmp.timeout":     c.FMP.Timeout,
		"gemini.timeout":  c.Gemini.Timeout,
		"claude.timeout":  c.Claude.Timeout,
		"llm.retry_delay": c.LLM.RetryDelay,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s=%q is not a duration: %w", name, value, err)
		}
	}

	if c.Warmup.Enabled {
		if err := ValidateSchedule(c.Warmup.Schedule); err != nil {
			return fmt.Errorf("invalid configuration: warmup.schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Duration parses a validated duration string, returning fallback when it is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
