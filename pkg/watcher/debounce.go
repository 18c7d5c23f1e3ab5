package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the quiescent window used when none is given.
// It matches the move-coalescing window used by the editor.
const DefaultDebounceDuration = 500 * time.Millisecond

// Debouncer coalesces a burst of triggers into a single callback invocation
// after a quiescent period. Every Trigger resets the timer; only the most
// recent callback fires. Safe for concurrent use.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
}

// NewDebouncer creates a debouncer with the given quiescent window.
// A non-positive duration falls back to DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Duration returns the configured quiescent window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

// Trigger schedules fn to run after the quiescent window, cancelling any
// previously scheduled callback.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush fires any pending callback immediately. Returns true if a callback
// was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	timer := d.timer
	d.timer = nil
	d.mu.Unlock()
	if timer == nil {
		return false
	}
	if timer.Stop() {
		// Reset to zero so AfterFunc's goroutine runs promptly.
		timer.Reset(0)
		return true
	}
	return false
}
