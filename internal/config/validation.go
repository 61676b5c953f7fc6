package config

import (
	"fmt"
	"os"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateMemory(&cfg.Memory); err != nil {
		return err
	}
	if err := validateSessionPaths(&cfg.SessionPaths); err != nil {
		return err
	}
	if err := validateEnrichment(&cfg.Enrichment); err != nil {
		return err
	}
	if err := validateConcurrency(&cfg.Concurrency); err != nil {
		return err
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}
	return nil
}

func validateMemory(cfg *MemoryConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("memory.url is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("memory.api_key is required")
	}
	return nil
}

func validateSessionPaths(cfg *SessionPathsConfig) error {
	if cfg.ClaudeCode == "" {
		return fmt.Errorf("session_paths.claude_code is required")
	}
	// The base directory is allowed to not exist yet: the third-party
	// tool may not have written any sessions. Only reject a path that
	// exists and is not a directory.
	if info, err := os.Stat(cfg.ClaudeCode); err == nil && !info.IsDir() {
		return fmt.Errorf("session_paths.claude_code is not a directory: %s", cfg.ClaudeCode)
	}
	return nil
}

func validateEnrichment(cfg *EnrichmentConfig) error {
	if cfg.Model == "" {
		return fmt.Errorf("enrichment.model is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("enrichment.api_key is required")
	}
	return nil
}

func validateConcurrency(cfg *ConcurrencyConfig) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("concurrency.workers must be at least 1")
	}
	if cfg.Workers > 64 {
		return fmt.Errorf("concurrency.workers cannot exceed 64")
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms cannot be negative")
	}
	if cfg.DebounceMS > 60000 {
		return fmt.Errorf("watcher.debounce_ms cannot exceed 60000ms")
	}
	return nil
}
