package cmd

import (
	"context"

	"github.com/brianly1003/worklog-ingest/internal/config"
	"github.com/brianly1003/worklog-ingest/internal/worklog/batch"
	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
	"github.com/brianly1003/worklog-ingest/internal/worklog/enrich"
	"github.com/brianly1003/worklog-ingest/internal/worklog/pipeline"
	"github.com/brianly1003/worklog-ingest/internal/worklog/progress"
	"github.com/brianly1003/worklog-ingest/internal/worklog/publish"
	"github.com/brianly1003/worklog-ingest/internal/worklog/sanitize"
	"github.com/brianly1003/worklog-ingest/internal/worklog/source"
	"github.com/brianly1003/worklog-ingest/internal/worklog/state"
)

// components bundles the pieces every subcommand wires together, mirroring
// workspace_manager.go's numbered construction steps but for the ingestion
// side of this pipeline rather than a session manager.
type components struct {
	source *source.Adapter
	state  *state.Store
	runner *batch.Runner
	cfg    *config.Config
}

// buildComponents constructs the Source Adapter, state Store, Enricher,
// Publisher and batch Runner from cfg. When hub is non-nil, every
// processed session's result is also fanned out to it, the way the admin
// server's progress feed expects. Callers are responsible for closing the
// returned state.Store.
func buildComponents(cfg *config.Config, hub *progress.Hub) (*components, error) {
	src := source.New(cfg.SessionPaths.ClaudeCode)

	st, err := state.Open(cfg.State.DBPath)
	if err != nil {
		return nil, err
	}

	enricher := enrich.New(enrich.Config{
		APIKey: cfg.Enrichment.APIKey,
		Model:  cfg.Enrichment.Model,
	})

	publisher := publish.New(publish.Config{
		URL:    cfg.Memory.URL,
		APIKey: cfg.Memory.APIKey,
	})

	sanitizeCfg, err := sanitize.LoadRulesFile(cfg.Sanitization.RulesFile, sanitize.Config{
		BlockedProjects: cfg.Sanitization.BlockedProjects,
		BlockedPaths:    cfg.Sanitization.BlockedPaths,
		BlockedDomains:  cfg.Sanitization.BlockedDomains,
		RedactedTerms:   cfg.Sanitization.RedactedTerms,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	pl := &pipeline.Pipeline{
		Source:    src,
		Sanitize:  sanitizeCfg,
		Enricher:  enricher,
		Publisher: publisher,
		Recorder:  st,
	}

	var processor batch.SessionProcessor = pl
	if hub != nil {
		processor = &publishingProcessor{inner: pl, hub: hub}
	}

	runner := batch.New(src, src, processor, cfg.Concurrency.Workers)

	return &components{source: src, state: st, runner: runner, cfg: cfg}, nil
}

func (c *components) Close() error {
	return c.state.Close()
}

// publishingProcessor decorates a batch.SessionProcessor so every result
// is also fanned out to the admin server's progress hub as it completes,
// rather than only after the whole batch finishes.
type publishingProcessor struct {
	inner batch.SessionProcessor
	hub   *progress.Hub
}

func (p *publishingProcessor) ProcessSession(ctx context.Context, entry domain.SessionIndexEntry) domain.ProcessResult {
	result := p.inner.ProcessSession(ctx, entry)
	p.hub.Publish(result)
	return result
}

// resultCounts tallies a batch's ProcessResults, shared by run.go's
// one-shot summary and serve.go's admin-API Summary.
type resultCounts struct {
	Processed       int
	Published       int
	Significant     int
	SkippedByReason map[string]int
}

func countResults(results []domain.ProcessResult) resultCounts {
	counts := resultCounts{SkippedByReason: make(map[string]int)}
	for _, r := range results {
		counts.Processed++
		if r.Published {
			counts.Published++
		}
		if r.IsSignificant {
			counts.Significant++
		}
		if r.SkippedReason != "" {
			counts.SkippedByReason[r.SkippedReason]++
		}
	}
	return counts
}
