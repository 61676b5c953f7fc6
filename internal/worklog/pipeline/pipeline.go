// Package pipeline wires the Source, Normalizer, Sanitizer, Enricher,
// Formatter and Publisher together into the single-session sequence
// described by spec.md §4.7.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
	"github.com/brianly1003/worklog-ingest/internal/worklog/format"
	"github.com/brianly1003/worklog-ingest/internal/worklog/normalize"
	"github.com/brianly1003/worklog-ingest/internal/worklog/publish"
	"github.com/brianly1003/worklog-ingest/internal/worklog/sanitize"
)

// minTurnsAfterSanitize mirrors enrich.minTurns; checked again here so a
// session sanitized below threshold never reaches the LLM call.
const minTurnsAfterSanitize = 3

// enrichmentDeadline and ioDeadline are the per-stage deadlines from
// spec.md §5.
const (
	enrichmentDeadline = 120 * time.Second
	ioDeadline         = 30 * time.Second
)

// SourceReader is the subset of the source adapter the pipeline needs.
type SourceReader interface {
	ReadSessionEntries(entry domain.SessionIndexEntry) ([]domain.RawRecord, error)
}

// Enricher classifies a sanitized session and produces its context
// document. Implemented by *enrich.Enricher.
type Enricher interface {
	Enrich(ctx context.Context, session domain.NormalizedSession) (domain.EnrichmentResult, error)
}

// DocumentPublisher uploads a rendered document to the content store.
// Implemented by *publish.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, payload domain.PublishPayload) error
}

// PublishRecorder is the local audit trail of SPEC_FULL.md §12.2: a record of what this pipeline believes it already published,
// consulted before a session is re-enriched and re-published, and
// updated after a successful publish. Implemented by *state.Store.
// Optional: a nil Recorder simply disables the short-circuit, relying on
// the content store's own path-idempotent upsert (spec.md §5).
type PublishRecorder interface {
	WasPublished(path string) (bool, error)
	RecordPublished(path, sessionID string, publishedAt time.Time) error
}

// Pipeline runs one session end to end.
type Pipeline struct {
	Source    SourceReader
	Sanitize  sanitize.Config
	Enricher  Enricher
	Publisher DocumentPublisher
	Recorder  PublishRecorder
}

// readWithDeadline bounds a blocking ReadSessionEntries call to ioDeadline:
// the source adapter's file I/O is synchronous stdlib os/bufio, so the
// deadline is enforced by racing it against the read in its own goroutine
// rather than threading a context into the adapter itself. A read that
// outlives the deadline leaks its goroutine until the os.Open'd file
// finishes being scanned; that is the same tradeoff the adapter's
// unbounded disk I/O already has today and is bounded in practice by the
// 4MB per-line scanner buffer.
func readWithDeadline(ctx context.Context, src SourceReader, entry domain.SessionIndexEntry) ([]domain.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, ioDeadline)
	defer cancel()

	type readResult struct {
		records []domain.RawRecord
		err     error
	}
	done := make(chan readResult, 1)
	go func() {
		records, err := src.ReadSessionEntries(entry)
		done <- readResult{records, err}
	}()

	select {
	case r := <-done:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessSession implements spec.md §4.7's exact sequence.
func (p *Pipeline) ProcessSession(ctx context.Context, entry domain.SessionIndexEntry) domain.ProcessResult {
	// Project is the basename normalize.Normalize derives from ProjectPath,
	// matching the value carried in published metadata (publish.BuildPayload).
	result := domain.ProcessResult{SessionID: entry.SessionID, Project: filepath.Base(entry.ProjectPath)}

	records, err := readWithDeadline(ctx, p.Source, entry)
	if err != nil {
		result.SkippedReason = fmt.Sprintf("read failed: %v", err)
		return result
	}

	session := normalize.Normalize(entry, records)
	if len(session.Turns) < minTurnsAfterSanitize {
		result.SkippedReason = "too few turns"
		return result
	}

	sanitized, ok := sanitize.Sanitize(p.Sanitize, session)
	if !ok {
		result.SkippedReason = "sanitized away"
		return result
	}
	if len(sanitized.Turns) < minTurnsAfterSanitize {
		result.SkippedReason = "too few turns"
		return result
	}

	path := publish.Path(sanitized)
	if p.Recorder != nil {
		already, err := p.Recorder.WasPublished(path)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", entry.SessionID).Msg("publish ledger lookup failed, reprocessing")
		} else if already {
			result.Published = true
			result.Summary = sanitized.Summary
			return result
		}
	}

	enrichCtx, cancel := context.WithTimeout(ctx, enrichmentDeadline)
	enrichment, err := p.Enricher.Enrich(enrichCtx, sanitized)
	cancel()
	if err != nil {
		result.SkippedReason = fmt.Sprintf("Enrichment failed: %v", err)
		return result
	}

	content := format.Render(sanitized, enrichment.Context)
	payload := publish.BuildPayload(sanitized, enrichment, content)

	publishCtx, cancel := context.WithTimeout(ctx, ioDeadline)
	err = p.Publisher.Publish(publishCtx, payload)
	cancel()
	if err != nil {
		result.IsSignificant = enrichment.IsSignificant
		result.SkippedReason = fmt.Sprintf("Publish failed: %v", err)
		return result
	}

	if p.Recorder != nil {
		if err := p.Recorder.RecordPublished(payload.Path, entry.SessionID, time.Now()); err != nil {
			log.Warn().Err(err).Str("sessionId", entry.SessionID).Msg("failed to record publish ledger entry")
		}
	}

	result.Published = true
	result.IsSignificant = enrichment.IsSignificant
	if enrichment.Entry != nil && enrichment.Entry.Summary != "" {
		result.Summary = enrichment.Entry.Summary
	} else {
		result.Summary = enrichment.Context.Title
	}

	log.Info().
		Str("sessionId", entry.SessionID).
		Bool("significant", result.IsSignificant).
		Msg("published worklog entry")

	return result
}
