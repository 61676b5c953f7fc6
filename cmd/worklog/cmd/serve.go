package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/worklog-ingest/internal/config"
	worklogserver "github.com/brianly1003/worklog-ingest/internal/server/worklog"
	"github.com/brianly1003/worklog-ingest/internal/worklog/progress"
	"github.com/brianly1003/worklog-ingest/internal/worklog/watch"
)

// serveInterval is the fallback polling cadence when the watcher is
// disabled or between debounced triggers.
const serveInterval = 5 * time.Minute

// serveCmd runs batches continuously alongside the admin HTTP control
// plane, generalizing the teacher's workspace-manager start command (event
// hub, component wiring, signal handling, orderly shutdown) to this
// pipeline's batch-loop-plus-admin-API shape.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the batch loop and admin HTTP control plane until stopped",
	Long: `Runs a batch on an interval (or whenever the session store changes, if
the watcher is enabled), and serves the admin HTTP control plane so an
operator can check status, trigger an out-of-band run, or stream
progress over WebSocket. Runs until SIGINT/SIGTERM.`,
	RunE: runServeCmd,
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)
	logger := consoleLogger()

	hub := progress.NewHub()

	comp, err := buildComponents(cfg, hub)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer func() { _ = comp.Close() }()

	runner := &serveRunner{comp: comp}

	admin, err := worklogserver.New(cfg.Server.Host, cfg.Server.Port, runner, hub, cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to construct admin server: %w", err)
	}
	if err := admin.Start(); err != nil {
		return fmt.Errorf("failed to start admin server: %w", err)
	}
	logger.Info("admin HTTP control plane listening", "addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	var watcher *watch.Watcher
	var trigger <-chan struct{}
	if cfg.Watcher.Enabled {
		watcher = watch.New(cfg.SessionPaths.ClaudeCode, cfg.Watcher.DebounceMS)
		if err := watcher.Start(context.Background()); err != nil {
			logger.Error("failed to start session store watcher, falling back to interval polling only", "error", err)
			watcher = nil
		} else {
			trigger = watcher.Trigger()
			logger.Info("session store watcher enabled", "debounce_ms", cfg.Watcher.DebounceMS)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(serveInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runBatchWithCorrelation(ctx, runner, logger)
			// trigger is nil when the watcher is disabled or failed to
			// start; a nil channel read in a select never fires, leaving
			// the ticker as the sole driver.
			case <-trigger:
				runBatchWithCorrelation(ctx, runner, logger)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("serving, press Ctrl+C to stop")
	<-sigCh

	logger.Info("shutting down")
	cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("error stopping session store watcher", "error", err)
		}
	}
	if err := admin.Stop(); err != nil {
		logger.Error("error stopping admin HTTP server", "error", err)
	}

	logger.Info("stopped")
	return nil
}

// runBatchWithCorrelation stamps each batch run with a correlation id that
// appears on its start and completion log lines; per-session log lines and
// progress events do not carry it.
func runBatchWithCorrelation(ctx context.Context, runner *serveRunner, logger *slog.Logger) {
	correlationID := uuid.NewString()
	log.Info().Str("correlation_id", correlationID).Msg("batch run starting")
	summary, err := runner.RunOnce(ctx)
	if err != nil {
		logger.Error("batch run failed", "correlation_id", correlationID, "error", err)
		return
	}
	logger.Info("batch run complete",
		"correlation_id", correlationID,
		"processed", summary.Processed,
		"published", summary.Published,
		"significant", summary.Significant,
	)
}

// serveRunner adapts components to the admin server's BatchRunner
// interface, translating batch.Runner's results into a worklogserver.Summary.
type serveRunner struct {
	comp *components
}

func (r *serveRunner) RunOnce(ctx context.Context) (worklogserver.Summary, error) {
	started := time.Now()

	marks, err := r.comp.state.AllHighWaterMarks()
	if err != nil {
		return worklogserver.Summary{}, fmt.Errorf("load high-water marks: %w", err)
	}

	results, newMarks, err := r.comp.runner.Run(ctx, marks)
	counts := countResults(results)
	summary := worklogserver.Summary{
		StartedAt:       started,
		FinishedAt:      time.Now(),
		Processed:       counts.Processed,
		Published:       counts.Published,
		Significant:     counts.Significant,
		SkippedByReason: counts.SkippedByReason,
		HighWaterMarks:  make(map[string]time.Time),
	}
	for project, entry := range newMarks {
		summary.HighWaterMarks[project] = entry.Modified
	}

	if err != nil {
		return summary, err
	}

	if advErr := r.comp.state.AdvanceAll(newMarks); advErr != nil {
		return summary, fmt.Errorf("advance high-water marks: %w", advErr)
	}

	return summary, nil
}
