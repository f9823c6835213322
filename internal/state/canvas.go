package state

import (
	"errors"
	"log"
	"sort"
	"sync"
)

var ErrNilState = errors.New("shape id and state are required")

// CanvasState is the authoritative map from shape id to its current snapshot.
// Every operation touches one key; nothing here spans several shapes atomically.
type CanvasState struct {
	shapes map[ShapeID]*ShapeState
	order  []ShapeID // first-insert order, used as z-order
	mu     sync.RWMutex
}

func NewCanvasState() *CanvasState {
	return &CanvasState{
		shapes: make(map[ShapeID]*ShapeState),
	}
}

// Get returns the current snapshot for id. Soft-deleted shapes are returned
// with Deleted() == true.
func (cs *CanvasState) Get(id ShapeID) (*ShapeState, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	st, ok := cs.shapes[id]
	return st, ok
}

// ApplyState inserts or overwrites the snapshot for id. It is the only
// mutation primitive below the manager layer.
func (cs *CanvasState) ApplyState(id ShapeID, st *ShapeState) error {
	if id == "" || st == nil {
		return ErrNilState
	}
	st = st.Copy()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, exists := cs.shapes[id]; !exists {
		cs.order = append(cs.order, id)
	}
	cs.shapes[id] = st
	return nil
}

// VisibleShapes returns copies of every non-deleted shape in z-order.
func (cs *CanvasState) VisibleShapes() []Shape {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]Shape, 0, len(cs.order))
	for _, id := range cs.order {
		st := cs.shapes[id]
		if st.Deleted() || !st.HasShape() {
			continue
		}
		out = append(out, *st.Shape())
	}
	return out
}

// Snapshot returns a copy of every entry, deleted ones included.
func (cs *CanvasState) Snapshot() map[ShapeID]*ShapeState {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make(map[ShapeID]*ShapeState, len(cs.shapes))
	for id, st := range cs.shapes {
		out[id] = st.Copy()
	}
	return out
}

func (cs *CanvasState) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.shapes)
}

func (cs *CanvasState) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.shapes = make(map[ShapeID]*ShapeState)
	cs.order = nil
}

// ReplaceAll swaps the whole canvas for a resynchronised one. Z-order follows
// lastModified since the insert order of the source is not transferred.
func (cs *CanvasState) ReplaceAll(shapes map[ShapeID]*ShapeState) {
	next := make(map[ShapeID]*ShapeState, len(shapes))
	order := make([]ShapeID, 0, len(shapes))
	for id, st := range shapes {
		if id == "" || st == nil {
			continue
		}
		next[id] = st.Copy()
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := next[order[i]].LastModified(), next[order[j]].LastModified()
		if a.Equal(b) {
			return order[i] < order[j]
		}
		return a.Before(b)
	})

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.shapes = next
	cs.order = order
	log.Printf("[CANVAS] Replaced canvas with %d shapes", len(next))
}
