package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/worklog-ingest/internal/config"
)

// runCmd runs a single batch across every known project and exits,
// generalizing the teacher's start.go one-shot invocation to this
// pipeline's batch-and-exit mode.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch across all known projects and exit",
	Long: `Scans every project's sessions index, processes sessions newer than
their stored high-water mark, and advances the mark on an orderly
completion. Intended for cron or manual invocation; see 'worklog serve'
for the continuous mode with an admin HTTP control plane.`,
	RunE: runRunCmd,
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "override concurrency.workers from config")
}

var runWorkers int

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)
	if runWorkers > 0 {
		cfg.Concurrency.Workers = runWorkers
	}

	comp, err := buildComponents(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer func() { _ = comp.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn().Msg("interrupt received, cancelling in-flight batch")
		cancel()
	}()

	marks, err := comp.state.AllHighWaterMarks()
	if err != nil {
		return fmt.Errorf("failed to load high-water marks: %w", err)
	}

	results, newMarks, err := comp.runner.Run(ctx, marks)
	if err != nil {
		return fmt.Errorf("batch run interrupted: %w", err)
	}

	if err := comp.state.AdvanceAll(newMarks); err != nil {
		return fmt.Errorf("failed to advance high-water marks: %w", err)
	}

	counts := countResults(results)

	log.Info().
		Int("processed", counts.Processed).
		Int("published", counts.Published).
		Int("significant", counts.Significant).
		Interface("skipped_by_reason", counts.SkippedByReason).
		Msg("batch run complete")

	return nil
}
