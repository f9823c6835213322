package state

import "time"

// ShapeState is an immutable snapshot of one shape: the memento stored on the
// canvas and carried by actions. A nil shape means "does not exist yet".
type ShapeState struct {
	shape        *Shape
	deleted      bool
	lastModified time.Time
}

// NewShapeState deep-copies shape, so later edits to the argument never leak
// into the snapshot.
func NewShapeState(shape *Shape, deleted bool, lastModified time.Time) *ShapeState {
	st := &ShapeState{deleted: deleted, lastModified: lastModified}
	if shape != nil {
		c := shape.Clone()
		st.shape = &c
	}
	return st
}

// Shape returns a copy of the snapshotted shape, or nil.
func (st *ShapeState) Shape() *Shape {
	if st == nil || st.shape == nil {
		return nil
	}
	c := st.shape.Clone()
	return &c
}

func (st *ShapeState) HasShape() bool { return st != nil && st.shape != nil }

func (st *ShapeState) Deleted() bool { return st.deleted }

func (st *ShapeState) LastModified() time.Time { return st.lastModified }

// ID returns the id of the snapshotted shape, or "" for an empty state.
func (st *ShapeState) ID() ShapeID {
	if st == nil || st.shape == nil {
		return ""
	}
	return st.shape.ID
}

// Copy returns an equal snapshot that shares nothing with st.
func (st *ShapeState) Copy() *ShapeState {
	if st == nil {
		return nil
	}
	return NewShapeState(st.shape, st.deleted, st.lastModified)
}

// Equal compares shape and deleted flag; lastModified is not compared.
func (st *ShapeState) Equal(o *ShapeState) bool {
	if st == nil || o == nil {
		return st == nil && o == nil
	}
	if st.deleted != o.deleted {
		return false
	}
	if st.shape == nil || o.shape == nil {
		return st.shape == nil && o.shape == nil
	}
	return st.shape.Equal(*o.shape)
}
