package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

type fakeProjects struct {
	projects []string
}

func (f fakeProjects) ListProjects() ([]string, error) { return f.projects, nil }

type fakeIndex struct {
	byProject map[string]*domain.SessionsIndex
}

func (f fakeIndex) ReadSessionsIndex(projectPath string) (*domain.SessionsIndex, error) {
	return f.byProject[projectPath], nil
}

type recordingPipeline struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingPipeline) ProcessSession(_ context.Context, entry domain.SessionIndexEntry) domain.ProcessResult {
	p.mu.Lock()
	p.seen = append(p.seen, entry.SessionID)
	p.mu.Unlock()
	return domain.ProcessResult{SessionID: entry.SessionID, Published: true}
}

func entryAt(id string, minute int) domain.SessionIndexEntry {
	return domain.SessionIndexEntry{
		SessionID:    id,
		ProjectPath:  "/home/u/proj",
		MessageCount: 5,
		Modified:     time.Date(2025, 1, 22, 10, minute, 0, 0, time.UTC),
	}
}

func TestRun_ProcessesAllEligibleSessionsAboveHighWaterMark(t *testing.T) {
	idx := &domain.SessionsIndex{
		OriginalPath: "/home/u/proj",
		Entries: []domain.SessionIndexEntry{
			entryAt("old", 1),
			entryAt("new1", 5),
			entryAt("new2", 10),
		},
	}
	projects := fakeProjects{projects: []string{"/home/u/proj"}}
	index := fakeIndex{byProject: map[string]*domain.SessionsIndex{"/home/u/proj": idx}}
	pipeline := &recordingPipeline{}

	marks := map[string]domain.SessionIndexEntry{
		"/home/u/proj": {Modified: time.Date(2025, 1, 22, 10, 2, 0, 0, time.UTC)},
	}

	runner := New(projects, index, pipeline, 2)
	results, newMarks, err := runner.Run(context.Background(), marks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (old session excluded by high-water mark)", len(results))
	}

	pipeline.mu.Lock()
	seen := append([]string(nil), pipeline.seen...)
	pipeline.mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("pipeline processed %d sessions, want 2: %v", len(seen), seen)
	}
	for _, id := range seen {
		if id == "old" {
			t.Fatalf("old session should have been excluded by the high-water mark, got %v", seen)
		}
	}

	mark := newMarks["/home/u/proj"]
	if mark.SessionID != "new2" {
		t.Fatalf("high-water mark = %+v, want new2 (latest modified)", mark)
	}
}

func TestRun_ExcludesIneligibleEntries(t *testing.T) {
	idx := &domain.SessionsIndex{
		OriginalPath: "/home/u/proj",
		Entries: []domain.SessionIndexEntry{
			entryAt("ok", 5),
			{SessionID: "agent-sub", ProjectPath: "/home/u/proj", MessageCount: 20, Modified: time.Date(2025, 1, 22, 10, 9, 0, 0, time.UTC)},
			{SessionID: "too-short", ProjectPath: "/home/u/proj", MessageCount: 2, Modified: time.Date(2025, 1, 22, 10, 8, 0, 0, time.UTC)},
			{SessionID: "sidechain", ProjectPath: "/home/u/proj", MessageCount: 10, IsSidechain: true, Modified: time.Date(2025, 1, 22, 10, 7, 0, 0, time.UTC)},
		},
	}
	projects := fakeProjects{projects: []string{"/home/u/proj"}}
	index := fakeIndex{byProject: map[string]*domain.SessionsIndex{"/home/u/proj": idx}}
	pipeline := &recordingPipeline{}

	runner := New(projects, index, pipeline, 2)
	results, _, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 (only the eligible entry)", len(results))
	}

	pipeline.mu.Lock()
	seen := append([]string(nil), pipeline.seen...)
	pipeline.mu.Unlock()
	if len(seen) != 1 || seen[0] != "ok" {
		t.Fatalf("pipeline processed %v, want only [ok]", seen)
	}
}

func TestRun_SkipsProjectWithNilIndex(t *testing.T) {
	projects := fakeProjects{projects: []string{"/home/u/empty"}}
	index := fakeIndex{byProject: map[string]*domain.SessionsIndex{}}
	pipeline := &recordingPipeline{}

	runner := New(projects, index, pipeline, 1)
	results, _, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %+v, want empty", results)
	}
}

func TestHighWaterMark_PicksMaxModifiedPerProject(t *testing.T) {
	entries := []domain.SessionIndexEntry{
		{ProjectPath: "p1", Modified: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ProjectPath: "p1", Modified: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ProjectPath: "p2", Modified: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	marks := HighWaterMark(entries)
	if marks["p1"].Modified.Day() != 2 {
		t.Errorf("p1 mark = %+v", marks["p1"])
	}
	if marks["p2"].Modified.Day() != 5 {
		t.Errorf("p2 mark = %+v", marks["p2"])
	}
}
