// Package action holds the command side of the canvas: immutable actions that
// carry before/after mementos, the factory that builds them, per-user undo/redo
// history and the wire codec.
package action

import (
	"fmt"
	"time"

	"SyncBoard/internal/state"

	"github.com/google/uuid"
)

type Type string

const (
	Create    Type = "CREATE"
	Modify    Type = "MODIFY"
	Delete    Type = "DELETE"
	Resurrect Type = "RESURRECT"
)

type ID string

func NewActionID() ID {
	return ID(uuid.NewString())
}

// Action is produced once and never mutated. It is both the unit of network
// transfer and the unit of undo/redo history. PrevState is nil only for Create.
type Action struct {
	ID        ID
	UserID    string
	Timestamp time.Time
	Type      Type
	ShapeID   state.ShapeID
	PrevState *state.ShapeState
	NewState  *state.ShapeState
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s by %s (%s)", a.Type, a.ShapeID, a.UserID, a.ID)
}

// Validate checks the per-type memento invariants.
func (a Action) Validate() error {
	switch a.Type {
	case Create, Modify, Delete, Resurrect:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
	}
	if a.ID == "" || a.ShapeID == "" {
		return fmt.Errorf("%w: missing action or shape id", ErrMalformed)
	}
	if a.NewState == nil || !a.NewState.HasShape() {
		return fmt.Errorf("%w: %s has no new state", ErrMalformed, a.ID)
	}
	if a.NewState.ID() != a.ShapeID {
		return fmt.Errorf("%w: new state targets %s, action targets %s", ErrMalformed, a.NewState.ID(), a.ShapeID)
	}
	if a.Type != Create {
		if a.PrevState == nil || !a.PrevState.HasShape() {
			return fmt.Errorf("%w: %s %s has no previous state", ErrMalformed, a.Type, a.ID)
		}
		if a.PrevState.ID() != a.ShapeID {
			return fmt.Errorf("%w: previous state targets %s, action targets %s", ErrMalformed, a.PrevState.ID(), a.ShapeID)
		}
	}

	switch a.Type {
	case Create:
		if a.PrevState != nil || a.NewState.Deleted() {
			return fmt.Errorf("%w: create must start from nothing and end visible", ErrMalformed)
		}
	case Delete:
		if a.PrevState.Deleted() || !a.NewState.Deleted() {
			return fmt.Errorf("%w: delete must go from visible to deleted", ErrMalformed)
		}
	case Resurrect:
		if !a.PrevState.Deleted() || a.NewState.Deleted() {
			return fmt.Errorf("%w: resurrect must go from deleted to visible", ErrMalformed)
		}
	case Modify:
		if a.PrevState.Deleted() || a.NewState.Deleted() {
			return fmt.Errorf("%w: modify must keep the shape visible", ErrMalformed)
		}
	}
	return nil
}
