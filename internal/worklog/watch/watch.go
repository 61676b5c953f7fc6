// Package watch wraps fsnotify over the session store's base directory
// so the batch loop can react shortly after the third-party tool writes
// a new or updated sessions-index.json, instead of only polling on a
// fixed interval. It is strictly a trigger: the batch runner's own
// selection logic remains the source of truth for what is new, so a
// missed or duplicate signal is harmless.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const indexFileName = "sessions-index.json"

// Watcher watches a session store's base directory and signals Trigger
// whenever any project's sessions-index.json is written, debounced.
type Watcher struct {
	baseDir    string
	debounceMS int
	trigger    chan struct{}

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	debouncer *debouncer
	running   bool
	cancel    context.CancelFunc
	watched   map[string]bool
}

// New constructs a Watcher rooted at baseDir.
func New(baseDir string, debounceMS int) *Watcher {
	return &Watcher{
		baseDir:    baseDir,
		debounceMS: debounceMS,
		trigger:    make(chan struct{}, 1),
		watched:    make(map[string]bool),
	}
}

// Trigger returns the channel that receives a value each time a
// debounced write to an index file is observed. Buffered to 1: a batch
// runner that is already running a batch need only know "run again",
// not how many times it was asked.
func (w *Watcher) Trigger() <-chan struct{} {
	return w.trigger
}

// Start begins watching. It also watches the base directory itself, so
// newly created project subdirectories are picked up as they appear.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.debouncer = newDebouncer(time.Duration(w.debounceMS)*time.Millisecond, w.fire)
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(w.baseDir); err != nil {
		_ = w.Stop()
		return err
	}
	if err := w.watchExistingProjectDirs(); err != nil {
		log.Warn().Err(err).Msg("failed to watch some existing project directories")
	}

	go w.eventLoop(watchCtx)

	log.Info().Str("base_dir", w.baseDir).Int("debounce_ms", w.debounceMS).Msg("directory watcher started")
	return nil
}

// Stop terminates watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	if w.cancel != nil {
		w.cancel()
	}
	if w.debouncer != nil {
		w.debouncer.stop()
	}
	if w.fsw != nil {
		err := w.fsw.Close()
		w.fsw = nil
		return err
	}
	return nil
}

func (w *Watcher) watchExistingProjectDirs() error {
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.addWatch(filepath.Join(w.baseDir, e.Name())); err != nil {
			log.Warn().Err(err).Str("dir", e.Name()).Msg("failed to watch project directory")
		}
	}
	return nil
}

func (w *Watcher) addWatch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = true
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("directory watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)

	// A newly created project subdirectory needs its own watch so its
	// future sessions-index.json writes are seen.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatch(event.Name); err != nil {
				log.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new project directory")
			}
			return
		}
	}

	if base != indexFileName {
		return
	}
	w.debouncer.add(filepath.Dir(event.Name))
}

func (w *Watcher) fire(dir string) {
	select {
	case w.trigger <- struct{}{}:
	default:
		// A run is already pending; the batch runner will pick up this
		// directory's change on that run regardless.
	}
}
