package action

import (
	"fmt"
	"math"

	"SyncBoard/internal/state"
)

// Factory turns user intent plus the current canvas into well-formed actions.
type Factory struct {
	clock state.Clock
}

func NewFactory(clock state.Clock) *Factory {
	if clock == nil {
		clock = state.SystemClock{}
	}
	return &Factory{clock: clock}
}

func validateShape(s state.Shape) error {
	if _, err := state.ParseShapeKind(string(s.Kind)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return validateGeometry(s.Points, s.Thickness)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validateGeometry rejects geometry that cannot be compared or serialized.
func validateGeometry(points []state.Point, thickness float64) error {
	if !finite(thickness) || thickness < 0 {
		return fmt.Errorf("%w: thickness %v", ErrInvalidShape, thickness)
	}
	if len(points) == 0 {
		return fmt.Errorf("%w: no points", ErrInvalidShape)
	}
	for _, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("%w: point (%v, %v)", ErrInvalidShape, p.X, p.Y)
		}
	}
	return nil
}

// CreateCreate wraps a new shape in a CREATE action. A missing shape id or
// creator is filled in.
func (f *Factory) CreateCreate(shape state.Shape, userID string) (Action, error) {
	shape = shape.Clone()
	if err := validateShape(shape); err != nil {
		return Action{}, err
	}
	if shape.ID == "" {
		shape.ID = state.NewShapeID()
	}
	if shape.CreatedBy == "" {
		shape.CreatedBy = userID
	}
	shape.LastUpdatedBy = userID

	now := f.clock.Now()
	return Action{
		ID:        NewActionID(),
		UserID:    userID,
		Timestamp: now,
		Type:      Create,
		ShapeID:   shape.ID,
		NewState:  state.NewShapeState(&shape, false, now),
	}, nil
}

// visible returns the current snapshot of id, failing unless it exists and is
// not deleted.
func visible(cs *state.CanvasState, id state.ShapeID) (*state.ShapeState, error) {
	prev, ok := cs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s is absent", ErrInvalidState, id)
	}
	if prev.Deleted() {
		return nil, fmt.Errorf("%w: %s is deleted", ErrInvalidState, id)
	}
	return prev, nil
}

// CreateModify overlays the geometry, color and thickness of modified onto the
// current snapshot of id.
func (f *Factory) CreateModify(cs *state.CanvasState, id state.ShapeID, modified state.Shape, userID string) (Action, error) {
	prev, err := visible(cs, id)
	if err != nil {
		return Action{}, err
	}
	if err := validateGeometry(modified.Points, modified.Thickness); err != nil {
		return Action{}, fmt.Errorf("modify %s: %w", id, err)
	}

	before := prev.Shape()
	next := before.Clone()
	next.Points = modified.Clone().Points
	next.Color = modified.Color
	next.Thickness = modified.Thickness
	if next.SameAppearance(*before) {
		return Action{}, fmt.Errorf("%w: %s", ErrNoChange, id)
	}
	next.LastUpdatedBy = userID

	now := f.clock.Now()
	return Action{
		ID:        NewActionID(),
		UserID:    userID,
		Timestamp: now,
		Type:      Modify,
		ShapeID:   id,
		PrevState: prev.Copy(),
		NewState:  state.NewShapeState(&next, false, now),
	}, nil
}

func (f *Factory) CreateDelete(cs *state.CanvasState, id state.ShapeID, userID string) (Action, error) {
	prev, err := visible(cs, id)
	if err != nil {
		return Action{}, err
	}
	now := f.clock.Now()
	return Action{
		ID:        NewActionID(),
		UserID:    userID,
		Timestamp: now,
		Type:      Delete,
		ShapeID:   id,
		PrevState: prev.Copy(),
		NewState:  f.restamp(prev, true, userID),
	}, nil
}

// CreateInverse builds the action that undoes a. The inverse starts from a's
// new state and is stamped with userID and a fresh timestamp.
func (f *Factory) CreateInverse(a Action, userID string) (Action, error) {
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	inv := Action{
		ID:        NewActionID(),
		UserID:    userID,
		Timestamp: f.clock.Now(),
		ShapeID:   a.ShapeID,
		PrevState: a.NewState.Copy(),
	}
	switch a.Type {
	case Create:
		inv.Type = Delete
		inv.NewState = f.restamp(a.NewState, true, userID)
	case Delete:
		inv.Type = Resurrect
		inv.NewState = f.restamp(a.PrevState, false, userID)
	case Modify:
		inv.Type = Modify
		inv.NewState = f.restamp(a.PrevState, false, userID)
	case Resurrect:
		inv.Type = Delete
		inv.NewState = f.restamp(a.PrevState, true, userID)
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
	}
	return inv, nil
}

// CreateRedo re-targets an undone action at the canvas as it is now: the
// previous state is the current entry and the new state is a's new state.
func (f *Factory) CreateRedo(cs *state.CanvasState, a Action, userID string) (Action, error) {
	current, ok := cs.Get(a.ShapeID)
	if !ok {
		return Action{}, fmt.Errorf("%w: %s is absent", ErrInvalidState, a.ShapeID)
	}
	if a.NewState == nil || !a.NewState.HasShape() {
		return Action{}, fmt.Errorf("%w: %s has no new state", ErrMalformed, a.ID)
	}

	target := a.NewState.Deleted()
	redo := Action{
		ID:        NewActionID(),
		UserID:    userID,
		Timestamp: f.clock.Now(),
		ShapeID:   a.ShapeID,
		PrevState: current.Copy(),
		NewState:  f.restamp(a.NewState, target, userID),
	}
	switch {
	case current.Deleted() && !target:
		redo.Type = Resurrect
	case !current.Deleted() && target:
		redo.Type = Delete
	case !current.Deleted() && !target:
		if current.Shape().SameAppearance(*redo.NewState.Shape()) {
			return Action{}, fmt.Errorf("%w: %s", ErrNoChange, a.ShapeID)
		}
		redo.Type = Modify
	default:
		return Action{}, fmt.Errorf("%w: %s is already deleted", ErrInvalidState, a.ShapeID)
	}
	return redo, nil
}

func (f *Factory) restamp(st *state.ShapeState, deleted bool, userID string) *state.ShapeState {
	sh := st.Shape()
	sh.LastUpdatedBy = userID
	return state.NewShapeState(sh, deleted, f.clock.Now())
}
