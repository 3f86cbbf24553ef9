// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sunmarke-assistant/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model, embedder, temperature, max tokens
//   - Pipeline: retry budget, rate limit for model calls
//   - Storage: PostgreSQL connection (see storage.go)
//   - Corpus: school corpus file and data directory
//   - Web search: SearXNG base URL
//   - Tracing: OTLP trace export
//
// Validation is fail-fast: Load returns an error built from the sentinel
// errors below, checkable with errors.Is.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidMaxRetries indicates the pipeline retry budget is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidSearchURL indicates the SearXNG base URL is invalid.
	ErrInvalidSearchURL = errors.New("invalid search base URL")
)

const (
	// DefaultModelName is the default generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions, which is
	// what the documents table schema uses; see knowledge.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxRetries is the default pipeline retry budget: the maximum
	// number of rewrite/regenerate loop iterations before the pipeline
	// accepts a best-effort answer.
	DefaultMaxRetries = 3

	// MaxAllowedRetries bounds the retry budget so a misconfigured value
	// cannot keep a request looping through model calls.
	MaxAllowedRetries = 10
)

// SearXNGConfig holds the SearXNG service configuration for web lookup.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g. http://searxng:8080).
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// TracingConfig holds OTLP trace export configuration.
// Traces are exported to a local collector via OTLP HTTP.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config is the root application configuration.
type Config struct {
	// AI model configuration
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Pipeline configuration
	MaxRetries   int     `mapstructure:"max_retries" json:"max_retries"`
	LLMRateLimit float64 `mapstructure:"llm_rate_limit" json:"llm_rate_limit"` // model calls per second

	// Corpus configuration
	CorpusPath string `mapstructure:"corpus_path" json:"corpus_path"`
	DataDir    string `mapstructure:"data_dir" json:"data_dir"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE: never serialized
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Web search configuration
	SearXNG SearXNGConfig `mapstructure:"searxng" json:"searxng"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sunmarke-assistant")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	viper.SetDefault("max_retries", DefaultMaxRetries)
	viper.SetDefault("llm_rate_limit", 2.0)

	viper.SetDefault("corpus_path", "school_data.json")

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "assistant")
	viper.SetDefault("postgres_password", "assistant_dev_password")
	viper.SetDefault("postgres_db_name", "assistant")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("searxng.base_url", "http://localhost:8888")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "sunmarke-assistant")
}

// bindEnvVariables binds selected environment variables to config keys.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "ASSISTANT_MODEL_NAME")
	mustBind("embedder_model", "ASSISTANT_EMBEDDER_MODEL")
	mustBind("max_retries", "ASSISTANT_MAX_RETRIES")
	mustBind("corpus_path", "ASSISTANT_CORPUS_PATH")
	mustBind("searxng.base_url", "SEARXNG_BASE_URL")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Validate() checks its presence.
}

// Validate performs fail-fast validation of the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY not set", ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (must be 1-65536)", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxRetries < 1 || c.MaxRetries > MaxAllowedRetries {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxRetries, c.MaxRetries, MaxAllowedRetries)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.SearXNG.BaseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrInvalidSearchURL)
	}

	return nil
}
