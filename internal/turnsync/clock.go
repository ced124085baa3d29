package turnsync

import (
	"sync"
	"time"

	"github.com/eduplay/boardsync-backend/internal/entity"
)

// Clock issues write stamps for one writing process. Ordering relies on the
// monotonic counter; wall-clock only breaks ties between different writers,
// so clock skew across devices cannot reorder a single writer's history.
type Clock struct {
	mu      sync.Mutex
	counter uint64
	now     func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns a stamp strictly newer than every stamp this clock has
// issued or observed.
func (that *Clock) Next() entity.Stamp {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.counter++

	return entity.Stamp{Counter: that.counter, Wall: that.now().UnixMilli()}
}

// Current returns the latest issued stamp without advancing the clock.
func (that *Clock) Current() entity.Stamp {
	that.mu.Lock()
	defer that.mu.Unlock()

	return entity.Stamp{Counter: that.counter, Wall: that.now().UnixMilli()}
}

// Observe folds a remote stamp into the clock, so the next local write
// orders after everything this process has already applied.
func (that *Clock) Observe(stamp entity.Stamp) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if stamp.Counter > that.counter {
		that.counter = stamp.Counter
	}
}
