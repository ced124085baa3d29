package turnsync

import (
	"sync"
	"time"

	"github.com/eduplay/boardsync-backend/internal/entity"
)

// Guard suppresses incoming snapshots while a local multi-step operation is
// in flight, and for a trailing window afterwards. A concurrent remote write
// could otherwise legitimately win a race against a sequence that has not
// pushed its final write yet. The guard is a hard override on top of the
// gate: while in flight it drops everything, regardless of stamps.
type Guard struct {
	mu          sync.Mutex
	inFlight    bool
	since       entity.Stamp
	windowUntil time.Time
	window      time.Duration

	clock *Clock
	now   func() time.Time
}

func NewGuard(clock *Clock, window time.Duration) *Guard {
	return &Guard{
		clock:  clock,
		window: window,
		now:    time.Now,
	}
}

// Run executes fn as a guarded operation. End runs on every exit path,
// including panics; a guard left in flight would make the session
// permanently unsynchronizable for this process.
func (that *Guard) Run(fn func() error) error {
	that.Begin()
	defer that.End()

	return fn()
}

func (that *Guard) Begin() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.inFlight = true
	that.since = that.clock.Current()
}

func (that *Guard) End() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.inFlight = false
	that.windowUntil = that.now().Add(that.window)
}

// ShouldDrop reports whether an incoming snapshot must be discarded: always
// while an operation is in flight, and during the trailing window when the
// snapshot is not newer than the operation's start, which absorbs delayed
// echoes of pre-operation state.
func (that *Guard) ShouldDrop(incoming entity.Stamp) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.inFlight {
		return true
	}

	if that.now().Before(that.windowUntil) && !incoming.After(that.since) {
		return true
	}

	return false
}

func (that *Guard) InFlight() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.inFlight
}
