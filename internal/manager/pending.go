package manager

import (
	"time"

	"SyncBoard/internal/action"
)

type origin int

const (
	fromRequest origin = iota
	fromUndo
	fromRedo
)

// pendingEntry is a submitted action the host has not finished with. An entry
// is settled once both the reply and the broadcast echo have been seen. Until
// answered is set the call to the host is still in flight.
type pendingEntry struct {
	action     action.Action
	origin     origin
	source     action.ID // history entry an undo or redo was built from
	submitted  time.Time
	answered   bool
	answeredAt time.Time
	echoed     bool
}

// pendingSet is guarded by the owning participant's mutex.
type pendingSet struct {
	entries map[action.ID]*pendingEntry
}

func newPendingSet() *pendingSet {
	return &pendingSet{entries: make(map[action.ID]*pendingEntry)}
}

func (ps *pendingSet) add(e *pendingEntry) { ps.entries[e.action.ID] = e }

func (ps *pendingSet) get(id action.ID) (*pendingEntry, bool) {
	e, ok := ps.entries[id]
	return e, ok
}

func (ps *pendingSet) remove(id action.ID) { delete(ps.entries, id) }

func (ps *pendingSet) len() int { return len(ps.entries) }

// expired removes and returns the accepted entries whose echo has not arrived
// since before cutoff. Entries still in flight are left to the call timeout.
func (ps *pendingSet) expired(cutoff time.Time) []*pendingEntry {
	var out []*pendingEntry
	for id, e := range ps.entries {
		if e.answered && e.answeredAt.Before(cutoff) {
			out = append(out, e)
			delete(ps.entries, id)
		}
	}
	return out
}
