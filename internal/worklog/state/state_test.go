package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHighWaterMark_DefaultsToZeroTime(t *testing.T) {
	s := openTestStore(t)
	mark, err := s.HighWaterMark("/home/u/proj")
	if err != nil {
		t.Fatalf("HighWaterMark: %v", err)
	}
	if !mark.IsZero() {
		t.Errorf("mark = %v, want zero time", mark)
	}
}

func TestAdvanceHighWaterMark_RoundTrips(t *testing.T) {
	s := openTestStore(t)
	want := time.Date(2025, 1, 22, 12, 0, 0, 0, time.UTC)

	if err := s.AdvanceHighWaterMark("/home/u/proj", want); err != nil {
		t.Fatalf("AdvanceHighWaterMark: %v", err)
	}
	got, err := s.HighWaterMark("/home/u/proj")
	if err != nil {
		t.Fatalf("HighWaterMark: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("HighWaterMark = %v, want %v", got, want)
	}
}

// The store itself does not enforce monotonicity — it is the batch
// runner's job (per spec.md §5) to only ever call AdvanceHighWaterMark
// with a project's maximum observed modified time for that run.
func TestAdvanceHighWaterMark_LastWriteWins(t *testing.T) {
	s := openTestStore(t)
	first := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	second := time.Date(2025, 1, 22, 12, 0, 0, 0, time.UTC)

	if err := s.AdvanceHighWaterMark("/home/u/proj", first); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceHighWaterMark("/home/u/proj", second); err != nil {
		t.Fatal(err)
	}

	got, _ := s.HighWaterMark("/home/u/proj")
	if !got.Equal(second) {
		t.Errorf("HighWaterMark = %v, want %v", got, second)
	}
}

func TestRecordPublished_WasPublished(t *testing.T) {
	s := openTestStore(t)
	path := "/worklog/2025-01-22/s1"

	ok, err := s.WasPublished(path)
	if err != nil {
		t.Fatalf("WasPublished: %v", err)
	}
	if ok {
		t.Fatal("expected not yet published")
	}

	if err := s.RecordPublished(path, "s1", time.Now().UTC()); err != nil {
		t.Fatalf("RecordPublished: %v", err)
	}

	ok, err = s.WasPublished(path)
	if err != nil {
		t.Fatalf("WasPublished: %v", err)
	}
	if !ok {
		t.Fatal("expected published after RecordPublished")
	}
}

func TestAdvanceAll_AndAllHighWaterMarks(t *testing.T) {
	s := openTestStore(t)
	marks := map[string]domain.SessionIndexEntry{
		"/home/u/p1": {Modified: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		"/home/u/p2": {Modified: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	if err := s.AdvanceAll(marks); err != nil {
		t.Fatalf("AdvanceAll: %v", err)
	}

	got, err := s.AllHighWaterMarks()
	if err != nil {
		t.Fatalf("AllHighWaterMarks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if !got["/home/u/p1"].Modified.Equal(marks["/home/u/p1"].Modified) {
		t.Errorf("p1 mark = %v", got["/home/u/p1"].Modified)
	}
}
