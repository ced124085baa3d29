package entity

// Stamp is a writer-assigned logical timestamp. Counter is a per-writer
// monotonic sequence number; Wall is a unix-millisecond tiebreaker for
// writes coming from different processes.
type Stamp struct {
	Counter uint64 `json:"counter"`
	Wall    int64  `json:"wall,omitempty"`
}

func (that Stamp) IsZero() bool {
	return that.Counter == 0 && that.Wall == 0
}

// After reports whether this stamp is strictly newer than the other one.
// A zero stamp is never newer than anything, including another zero stamp.
func (that Stamp) After(other Stamp) bool {
	if that.IsZero() {
		return false
	}

	if that.Counter != other.Counter {
		return that.Counter > other.Counter
	}

	return that.Wall > other.Wall
}
