package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brianly1003/worklog-ingest/internal/config"
	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
	"github.com/brianly1003/worklog-ingest/internal/worklog/source"
)

var (
	sessionProject string
	sessionLatest  bool
)

// sessionCmd resolves one session by project and id (or the latest
// eligible entry for a project) and runs it through the full pipeline,
// printing the resulting domain.ProcessResult. This is the batch-of-one
// debugging entry point for an operator diagnosing why a particular
// session was or wasn't published, without waiting for the next batch.
var sessionCmd = &cobra.Command{
	Use:   "session [session-id]",
	Short: "Run one session through the pipeline and print its result",
	Long: `Resolves a session by project and id (or --latest), runs it through the
full read -> normalize -> sanitize -> enrich -> format -> publish
pipeline, and prints the resulting ProcessResult.

Examples:
  worklog session --project /home/me/app abc123
  worklog session --project /home/me/app --latest`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionCmd,
}

func init() {
	sessionCmd.Flags().StringVar(&sessionProject, "project", "", "project path as recorded in its sessions-index.json (required)")
	sessionCmd.Flags().BoolVar(&sessionLatest, "latest", false, "process the most recently modified eligible session instead of looking up an id")
	_ = sessionCmd.MarkFlagRequired("project")
}

func runSessionCmd(cmd *cobra.Command, args []string) error {
	if !sessionLatest && len(args) == 0 {
		return fmt.Errorf("provide a session id or pass --latest")
	}
	var sessionID string
	if len(args) == 1 {
		sessionID = args[0]
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)

	entry, err := resolveSessionEntry(cfg, sessionID)
	if err != nil {
		return err
	}
	if entry == nil {
		fmt.Fprintln(os.Stderr, "no matching session found")
		os.Exit(1)
	}

	comp, err := buildComponents(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer func() { _ = comp.Close() }()

	result := comp.runner.Pipeline.ProcessSession(context.Background(), *entry)

	fmt.Printf("Session:        %s\n", result.SessionID)
	fmt.Printf("Project:        %s\n", result.Project)
	fmt.Printf("Published:      %t\n", result.Published)
	fmt.Printf("Significant:    %t\n", result.IsSignificant)
	if result.Summary != "" {
		fmt.Printf("Summary:        %s\n", result.Summary)
	}
	if result.SkippedReason != "" {
		fmt.Printf("Skipped reason: %s\n", result.SkippedReason)
	}

	return nil
}

func resolveSessionEntry(cfg *config.Config, sessionID string) (*domain.SessionIndexEntry, error) {
	src := source.New(cfg.SessionPaths.ClaudeCode)

	var entry *domain.SessionIndexEntry
	var err error
	if sessionLatest {
		entry, err = src.GetLatestSession(sessionProject)
	} else {
		entry, err = src.GetSessionByIDStrict(sessionProject, sessionID)
	}
	if err != nil {
		if err == source.ErrAmbiguousSession {
			return nil, fmt.Errorf("session id %q matches more than one session in %s", sessionID, sessionProject)
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	return entry, nil
}
