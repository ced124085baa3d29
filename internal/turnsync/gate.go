package turnsync

import (
	"sync"

	"github.com/eduplay/boardsync-backend/internal/entity"
)

// Gate rejects any incoming snapshot that is not strictly newer than the
// last accepted one for its stream. The store delivers whole documents with
// no ordering guarantee, so a stale duplicate can arrive after a fresher
// value; the gate is the first check every snapshot goes through.
type Gate struct {
	mu         sync.Mutex
	watermarks map[string]entity.Stamp
}

func NewGate() *Gate {
	return &Gate{watermarks: make(map[string]entity.Stamp)}
}

// Accept reports whether the snapshot stamp is strictly newer than the
// stream's watermark and, if so, moves the watermark forward. A zero stamp
// never passes.
func (that *Gate) Accept(streamID string, stamp entity.Stamp) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !stamp.After(that.watermarks[streamID]) {
		return false
	}

	that.watermarks[streamID] = stamp

	return true
}

func (that *Gate) Watermark(streamID string) entity.Stamp {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.watermarks[streamID]
}

// Reset forgets the watermark of a stream. Used on game reset, where the
// replacement document legitimately starts a fresh history.
func (that *Gate) Reset(streamID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.watermarks, streamID)
}
