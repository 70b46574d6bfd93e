package reader

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of trigger events into a single execution.
//
// It holds at most one pending task: a new Trigger cancels and replaces the
// pending one, so only the last submission in a burst runs, after the settle
// window has elapsed with no further triggers.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer with the given settle window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the settle window. Any pending task is
// cancelled and replaced. Triggers after Stop are ignored.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Flush runs fn immediately, cancelling any pending task first.
func (d *Debouncer) Flush(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	fn()
}

// Stop cancels any pending task and disables the debouncer. Used on
// unmount so a queued recalculation cannot act on a torn-down surface.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
