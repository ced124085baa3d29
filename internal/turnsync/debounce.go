package turnsync

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid non-authoritative edits, like in-progress
// reasoning text, into throttled writes. Only the latest enqueued function
// runs when the interval elapses; earlier ones are dropped. These writes are
// best-effort and last-writer-wins by design.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	pending  func()
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Enqueue replaces any pending function and (re)arms the timer.
func (that *Debouncer) Enqueue(fn func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pending = fn

	if that.timer != nil {
		that.timer.Stop()
	}

	that.timer = time.AfterFunc(that.interval, that.fire)
}

// Flush runs the pending function immediately, if any. Called before an
// authoritative write so a queued edit cannot land after it and clobber it.
func (that *Debouncer) Flush() {
	that.mu.Lock()

	fn := that.pending
	that.pending = nil
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	that.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (that *Debouncer) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pending = nil
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}
}

func (that *Debouncer) fire() {
	that.mu.Lock()

	fn := that.pending
	that.pending = nil
	that.timer = nil

	that.mu.Unlock()

	if fn != nil {
		fn()
	}
}
