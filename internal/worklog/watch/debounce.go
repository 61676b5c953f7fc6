package watch

import (
	"sync"
	"time"
)

// debouncer coalesces rapid filesystem events for the same directory into
// a single callback fired after window has elapsed with no further
// activity on that directory.
type debouncer struct {
	window   time.Duration
	callback func(dir string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

func newDebouncer(window time.Duration, callback func(dir string)) *debouncer {
	return &debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[dir]; ok {
		existing.Stop()
	}
	d.pending[dir] = time.AfterFunc(d.window, func() {
		d.fire(dir)
	})
}

func (d *debouncer) fire(dir string) {
	d.mu.Lock()
	if _, ok := d.pending[dir]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, dir)
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped && d.callback != nil {
		d.callback(dir)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, timer := range d.pending {
		timer.Stop()
	}
	d.pending = make(map[string]*time.Timer)
}
