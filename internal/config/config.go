// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.docent/config.yaml, or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Persona and chat model selection
//   - Ingestion sources: URLs, directories, references file
//   - Refresh policy: volatile URI patterns
//   - Retrieval tuning: top-K, similarity threshold, latency budget
//   - Storage: PostgreSQL connection
//   - Tool export: name prefix, enabled tool groups
//
// Validation is fail-fast: Load returns an error for any missing or
// out-of-range required value, and the process refuses to start.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation. Callers match with
// errors.Is.
var (
	// ErrBlankPersona indicates default_persona is empty or whitespace.
	ErrBlankPersona = errors.New("default persona must not be blank")

	// ErrBlankReferencesFile indicates references_file is empty.
	ErrBlankReferencesFile = errors.New("references file must not be blank")

	// ErrInvalidTopK indicates retrieval top_k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidSimilarityThreshold indicates the similarity threshold is
	// outside [0, 1].
	ErrInvalidSimilarityThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidMaxLatency indicates the retrieval latency budget is not positive.
	ErrInvalidMaxLatency = errors.New("invalid max latency")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is blank.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrBlankSnapshotPattern indicates a volatile URI pattern entry is empty.
	ErrBlankSnapshotPattern = errors.New("snapshot pattern must not be blank")
)

// DefaultSnapshotPattern is the volatile URI marker observed in practice:
// versioned documentation published under a snapshot suffix is re-fetched on
// every ingestion run.
const DefaultSnapshotPattern = "-SNAPSHOT"

// RetrievalConfig tunes query-time retrieval behavior.
type RetrievalConfig struct {
	// TopK is the maximum number of chunks returned per search.
	TopK int `mapstructure:"top_k" json:"top_k"`

	// SimilarityThreshold drops results below this cosine similarity.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`

	// MaxLatencyMs bounds a retrieval pass; on expiry partial results are
	// returned rather than blocking the turn.
	MaxLatencyMs int `mapstructure:"max_latency_ms" json:"max_latency_ms"`
}

// Config stores application configuration.
type Config struct {
	// Persona and model selection
	DefaultPersona string  `mapstructure:"default_persona" json:"default_persona"`
	Provider       string  `mapstructure:"provider" json:"provider"`
	ModelName      string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel  string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature    float32 `mapstructure:"temperature" json:"temperature"`

	// Ingestion sources
	ContentRoot    string   `mapstructure:"content_root" json:"content_root"`
	URLs           []string `mapstructure:"urls" json:"urls"`
	Directories    []string `mapstructure:"directories" json:"directories"`
	ReferencesFile string   `mapstructure:"references_file" json:"references_file"`

	// ReloadOnStartup runs a full reference reload before serving.
	ReloadOnStartup bool `mapstructure:"reload_on_startup" json:"reload_on_startup"`

	// SnapshotPatterns lists URI substrings that mark a source volatile:
	// matching sources are re-fetched on every ingestion run.
	SnapshotPatterns []string `mapstructure:"snapshot_patterns" json:"snapshot_patterns"`

	// Reference assembly
	APIPackageDirs []string `mapstructure:"api_package_dirs" json:"api_package_dirs"`
	Repositories   []string `mapstructure:"repositories" json:"repositories"`
	CloneDir       string   `mapstructure:"clone_dir" json:"clone_dir"`

	// Tool export
	ToolPrefix string   `mapstructure:"tool_prefix" json:"tool_prefix"`
	ToolGroups []string `mapstructure:"tool_groups" json:"tool_groups"`

	// Retrieval tuning
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve address for the HTTP API
	Addr string `mapstructure:"addr" json:"addr"`

	// Fetcher limits
	FetchTimeoutMs   int `mapstructure:"fetch_timeout_ms" json:"fetch_timeout_ms"`
	FetchParallelism int `mapstructure:"fetch_parallelism" json:"fetch_parallelism"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docent")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_persona", "docent")
	v.SetDefault("provider", "googleai")
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", "gemini-embedding-001")
	v.SetDefault("temperature", 0.7)

	v.SetDefault("references_file", "references.yml")
	v.SetDefault("snapshot_patterns", []string{DefaultSnapshotPattern})
	v.SetDefault("reload_on_startup", false)
	v.SetDefault("clone_dir", filepath.Join(os.TempDir(), "docent-repos"))

	v.SetDefault("retrieval.top_k", 4)
	v.SetDefault("retrieval.similarity_threshold", 0.7)
	v.SetDefault("retrieval.max_latency_ms", 5000)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "docent")
	v.SetDefault("postgres_password", "docent_dev_password")
	v.SetDefault("postgres_db_name", "docent")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("addr", "127.0.0.1:3500")

	v.SetDefault("fetch_timeout_ms", 30000)
	v.SetDefault("fetch_parallelism", 2)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("default_persona", "DOCENT_PERSONA")
	mustBind("provider", "DOCENT_PROVIDER")
	mustBind("model_name", "DOCENT_MODEL_NAME")
	mustBind("postgres_password", "DOCENT_POSTGRES_PASSWORD")
	mustBind("addr", "DOCENT_ADDR")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
}

// Validate checks all configuration values and returns the first violation.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultPersona) == "" {
		return ErrBlankPersona
	}
	if strings.TrimSpace(c.ReferencesFile) == "" {
		return ErrBlankReferencesFile
	}
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.Retrieval.TopK)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: must be within [0, 1], got %g", ErrInvalidSimilarityThreshold, c.Retrieval.SimilarityThreshold)
	}
	if c.Retrieval.MaxLatencyMs <= 0 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxLatency, c.Retrieval.MaxLatencyMs)
	}
	if strings.TrimSpace(c.PostgresHost) == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	for _, p := range c.SnapshotPatterns {
		if strings.TrimSpace(p) == "" {
			return ErrBlankSnapshotPattern
		}
	}
	return nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". A ModelName already containing "/" is
// returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return c.Provider + "/" + c.ModelName
}

// ConnString returns the PostgreSQL connection string for pgx.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// ToolName applies the configured prefix to a tool name.
func (c *Config) ToolName(name string) string {
	return c.ToolPrefix + name
}
