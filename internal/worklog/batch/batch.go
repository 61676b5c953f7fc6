// Package batch scans all known projects, selects sessions not yet
// published, and drives the pipeline over them with bounded concurrency.
package batch

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
	"github.com/brianly1003/worklog-ingest/internal/worklog/source"
)

// DefaultWorkers is the concurrency default from spec.md §6.
const DefaultWorkers = 4

// ProjectLister enumerates known projects.
type ProjectLister interface {
	ListProjects() ([]string, error)
}

// IndexReader reads a project's sessions index.
type IndexReader interface {
	ReadSessionsIndex(projectPath string) (*domain.SessionsIndex, error)
}

// SessionProcessor runs one session through the pipeline.
type SessionProcessor interface {
	ProcessSession(ctx context.Context, entry domain.SessionIndexEntry) domain.ProcessResult
}

// HighWaterMarks maps a project path to its stored high-water mark; a
// zero time.Time means the project has never been processed.
type HighWaterMarks map[string]domain.SessionIndexEntry

// job is one eligible entry in the flattened, sorted work queue.
type job struct {
	entry domain.SessionIndexEntry
}

// Runner drives the batch over all known projects.
type Runner struct {
	Projects ProjectLister
	Index    IndexReader
	Pipeline SessionProcessor
	Workers  int
}

// New constructs a Runner, defaulting Workers to DefaultWorkers.
func New(projects ProjectLister, index IndexReader, pipeline SessionProcessor, workers int) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{Projects: projects, Index: index, Pipeline: pipeline, Workers: workers}
}

// HighWaterMark returns the maximum Modified timestamp observed among the
// entries actually attempted in a project, so the host can advance its
// stored mark on orderly completion. It derives marks purely from the
// attempted entries; per-session success or failure plays no part, per spec.md §5's monotonic mark invariant.
func HighWaterMark(entries []domain.SessionIndexEntry) map[string]domain.SessionIndexEntry {
	marks := make(map[string]domain.SessionIndexEntry)
	for _, e := range entries {
		current, ok := marks[e.ProjectPath]
		if !ok || e.Modified.After(current.Modified) {
			marks[e.ProjectPath] = e
		}
	}
	return marks
}

// Run selects eligible, unprocessed sessions across all known projects
// and processes them with bounded concurrency, per spec.md §4.8.
func (r *Runner) Run(ctx context.Context, marks map[string]domain.SessionIndexEntry) ([]domain.ProcessResult, map[string]domain.SessionIndexEntry, error) {
	projects, err := r.Projects.ListProjects()
	if err != nil {
		return nil, nil, err
	}

	var jobs []job
	for _, project := range projects {
		idx, err := r.Index.ReadSessionsIndex(project)
		if err != nil || idx == nil {
			if err != nil {
				log.Warn().Err(err).Str("project", project).Msg("skipping project with malformed index")
			}
			continue
		}
		mark := marks[project]
		for _, entry := range idx.Entries {
			if !source.Eligible(entry) {
				continue
			}
			if !entry.Modified.After(mark.Modified) {
				continue
			}
			jobs = append(jobs, job{entry: entry})
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].entry.Modified.Before(jobs[j].entry.Modified)
	})

	results := make([]domain.ProcessResult, len(jobs))
	entries := make([]domain.SessionIndexEntry, len(jobs))

	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for w := 0; w < r.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				entries[i] = jobs[i].entry
				results[i] = r.Pipeline.ProcessSession(ctx, jobs[i].entry)
				if reason := results[i].SkippedReason; reason != "" {
					log.Warn().Str("session_id", results[i].SessionID).Str("reason", reason).Msg("skipped session")
				}
			}
		}()
	}
	wg.Wait()

	if errors.Is(ctx.Err(), context.Canceled) {
		return results, nil, ctx.Err()
	}

	return results, HighWaterMark(entries), nil
}
