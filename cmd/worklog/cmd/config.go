package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brianly1003/worklog-ingest/internal/config"
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and validate configuration",
	Long: `Display the current effective configuration.

Examples:
  worklog config           # Show current config
  worklog config validate  # Load and validate config, report errors`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configValidateCmd loads and validates config without running anything.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Println("config is valid")
		printConfig(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("-----------------------")
	fmt.Printf("Session path:     %s\n", cfg.SessionPaths.ClaudeCode)
	fmt.Printf("Memory URL:       %s\n", cfg.Memory.URL)
	fmt.Printf("Enrichment model: %s (%s)\n", cfg.Enrichment.Model, cfg.Enrichment.Provider)
	fmt.Printf("Workers:          %d\n", cfg.Concurrency.Workers)
	fmt.Printf("Server:           %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Watcher enabled:  %t (debounce %dms)\n", cfg.Watcher.Enabled, cfg.Watcher.DebounceMS)
	fmt.Printf("State DB path:    %s\n", cfg.State.DBPath)
	fmt.Printf("Log level/format: %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Sanitization.RulesFile != "" {
		fmt.Printf("Rules file:       %s\n", cfg.Sanitization.RulesFile)
	}
}
