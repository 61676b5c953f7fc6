package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForTrigger(t *testing.T, ch <-chan struct{}, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcher_FiresOnIndexFileWrite(t *testing.T) {
	base := t.TempDir()
	projectDir := filepath.Join(base, "-home-u-proj")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w := New(base, 50)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	indexPath := filepath.Join(projectDir, indexFileName)
	if err := os.WriteFile(indexPath, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitForTrigger(t, w.Trigger(), 2*time.Second) {
		t.Fatal("expected a trigger signal after writing sessions-index.json")
	}
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	base := t.TempDir()
	projectDir := filepath.Join(base, "-home-u-proj")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w := New(base, 50)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := os.WriteFile(filepath.Join(projectDir, "session-abc.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if waitForTrigger(t, w.Trigger(), 300*time.Millisecond) {
		t.Fatal("did not expect a trigger from a non-index file write")
	}
}

func TestWatcher_WatchesNewlyCreatedProjectDirectory(t *testing.T) {
	base := t.TempDir()

	w := New(base, 50)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	newProjectDir := filepath.Join(base, "-home-u-new")
	if err := os.MkdirAll(newProjectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher's own create-event handling a moment to add the
	// new directory's watch before we write the index file into it.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(newProjectDir, indexFileName), []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitForTrigger(t, w.Trigger(), 2*time.Second) {
		t.Fatal("expected a trigger signal for the newly created project directory")
	}
}
