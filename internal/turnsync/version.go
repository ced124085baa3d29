package turnsync

import "sync"

// VersionCounter is the local authoritative turn version. It advances by
// exactly one per completed turn transition and never on intermediate
// sub-phase changes. Remote turn-pointer fields are adopted only when the
// remote version is strictly ahead; this is advisory staleness detection,
// not mutual exclusion. Two writers racing from the same base version
// resolve to whichever write lands last in the store.
type VersionCounter struct {
	mu      sync.Mutex
	version uint64
}

func NewVersionCounter() *VersionCounter {
	return &VersionCounter{}
}

func (that *VersionCounter) Current() uint64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.version
}

// Advance completes one turn transition.
func (that *VersionCounter) Advance() uint64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.version++

	return that.version
}

// Set overwrites the counter. Used at game start and reset.
func (that *VersionCounter) Set(version uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.version = version
}

// TryAdvanceTurn adopts a remote version when it is strictly ahead of the
// local one and reports whether the remote turn pointers should be applied.
// A remote version at or behind the local one leaves the counter untouched;
// the snapshot's non-turn fields may still be merged by the caller.
func (that *VersionCounter) TryAdvanceTurn(remote uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if remote <= that.version {
		return false
	}

	that.version = remote

	return true
}
