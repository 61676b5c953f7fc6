// Package config handles configuration management for the worklog
// ingestion pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Memory       MemoryConfig       `mapstructure:"memory"`
	SessionPaths SessionPathsConfig `mapstructure:"session_paths"`
	Sanitization SanitizationConfig `mapstructure:"sanitization"`
	Enrichment   EnrichmentConfig   `mapstructure:"enrichment"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	State        StateConfig        `mapstructure:"state"`
	Watcher      WatcherConfig      `mapstructure:"watcher"`
}

// MemoryConfig addresses the content store the pipeline publishes to.
type MemoryConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// SessionPathsConfig names the on-disk session store the Source Adapter
// reads from.
type SessionPathsConfig struct {
	ClaudeCode string `mapstructure:"claude_code"`
}

// SanitizationConfig is the sanitizer's rule set, per spec.md §4.3/§6.
type SanitizationConfig struct {
	BlockedProjects []string          `mapstructure:"blocked_projects"`
	BlockedPaths    []string          `mapstructure:"blocked_paths"`
	BlockedDomains  []string          `mapstructure:"blocked_domains"`
	RedactedTerms   map[string]string `mapstructure:"redacted_terms"`
	// RulesFile optionally names a standalone YAML rules corpus merged
	// into the lists above at startup, per spec.md §9's redactedTerms
	// extension point. Empty means no supplementary file is loaded.
	RulesFile string `mapstructure:"rules_file"`
}

// EnrichmentConfig selects the LLM model and API key. Provider is shown by
// `worklog config` but not consulted: enrichment always uses the
// Anthropic client.
type EnrichmentConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// ConcurrencyConfig bounds the batch runner's worker pool.
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers"`
}

// ServerConfig holds the admin HTTP control plane's bind configuration.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// TrustedProxies lists CIDR ranges or IPs allowed to set
	// X-Forwarded-* headers when the control plane sits behind a
	// reverse proxy. Empty means forwarded headers are never trusted.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string            `mapstructure:"level"`
	Format   string            `mapstructure:"format"`
	Rotation LogRotationConfig `mapstructure:"rotation"`
}

// LogRotationConfig holds log rotation configuration for the per-run
// processing log.
type LogRotationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// StateConfig locates the reference high-water-mark/idempotency store.
type StateConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// WatcherConfig controls the directory watcher that triggers incremental
// batch runs.
type WatcherConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.worklog")
		v.AddConfigPath("/etc/worklog")
	}

	// NOTE: Keep this aligned with docs (WORKLOG_* env overrides).
	v.SetEnvPrefix("WORKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("session_paths.claude_code", defaultClaudeCodeBase())

	v.SetDefault("sanitization.blocked_projects", []string{})
	v.SetDefault("sanitization.blocked_paths", []string{})
	v.SetDefault("sanitization.blocked_domains", []string{})
	v.SetDefault("sanitization.rules_file", "")

	v.SetDefault("enrichment.provider", "anthropic")
	v.SetDefault("enrichment.model", "claude-sonnet-4-5")

	v.SetDefault("concurrency.workers", 4)

	v.SetDefault("server.port", 8787)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.rotation.enabled", true)
	v.SetDefault("logging.rotation.path", "")
	v.SetDefault("logging.rotation.max_size_mb", 50)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.max_age_days", 30)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("state.db_path", "")

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_ms", 500)
}

func defaultClaudeCodeBase() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	if cfg.SessionPaths.ClaudeCode != "" {
		absPath, err := filepath.Abs(cfg.SessionPaths.ClaudeCode)
		if err != nil {
			return fmt.Errorf("failed to resolve session_paths.claude_code: %w", err)
		}
		cfg.SessionPaths.ClaudeCode = absPath
	}

	if cfg.State.DBPath == "" {
		dir, err := EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve default state.db_path: %w", err)
		}
		cfg.State.DBPath = filepath.Join(dir, "worklog-state.db")
	}

	if cfg.Logging.Rotation.Path == "" {
		dir, err := EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve default logging.rotation.path: %w", err)
		}
		cfg.Logging.Rotation.Path = filepath.Join(dir, "logs", "worklog.log")
	}

	return nil
}

// GetConfigDir returns the user config directory for the pipeline.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".worklog"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
