package action

import (
	"encoding/json"
	"fmt"
	"time"

	"SyncBoard/internal/state"
)

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// wireState is the self-describing form of a ShapeState. lastModified travels
// as RFC 3339 with nanoseconds, so no precision is lost.
type wireState struct {
	ShapeID       string      `json:"shapeId"`
	ShapeKind     string      `json:"shapeKind"`
	Points        []wirePoint `json:"points"`
	ColorARGB     uint32      `json:"colorARGB"`
	Thickness     float64     `json:"thickness"`
	CreatedBy     string      `json:"createdBy"`
	LastUpdatedBy string      `json:"lastUpdatedBy"`
	IsDeleted     bool        `json:"isDeleted"`
	LastModified  time.Time   `json:"lastModified"`
}

type wireAction struct {
	ActionID   string     `json:"actionId"`
	UserID     string     `json:"userId"`
	Timestamp  time.Time  `json:"timestamp"`
	ActionType string     `json:"actionType"`
	ShapeID    string     `json:"shapeId"`
	PrevState  *wireState `json:"prevState,omitempty"`
	NewState   *wireState `json:"newState"`
}

func toWireState(st *state.ShapeState) *wireState {
	sh := st.Shape()
	if sh == nil {
		return nil
	}
	pts := make([]wirePoint, len(sh.Points))
	for i, p := range sh.Points {
		pts[i] = wirePoint{X: p.X, Y: p.Y}
	}
	return &wireState{
		ShapeID:       string(sh.ID),
		ShapeKind:     string(sh.Kind),
		Points:        pts,
		ColorARGB:     sh.Color,
		Thickness:     sh.Thickness,
		CreatedBy:     sh.CreatedBy,
		LastUpdatedBy: sh.LastUpdatedBy,
		IsDeleted:     st.Deleted(),
		LastModified:  st.LastModified(),
	}
}

func fromWireState(w *wireState) (*state.ShapeState, error) {
	if w == nil {
		return nil, nil
	}
	kind, err := state.ParseShapeKind(w.ShapeKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.ShapeID == "" {
		return nil, fmt.Errorf("%w: shape without id", ErrMalformed)
	}
	pts := make([]state.Point, len(w.Points))
	for i, p := range w.Points {
		pts[i] = state.Point{X: p.X, Y: p.Y}
	}
	sh := state.Shape{
		ID:            state.ShapeID(w.ShapeID),
		Kind:          kind,
		Points:        pts,
		Color:         w.ColorARGB,
		Thickness:     w.Thickness,
		CreatedBy:     w.CreatedBy,
		LastUpdatedBy: w.LastUpdatedBy,
	}
	return state.NewShapeState(&sh, w.IsDeleted, w.LastModified), nil
}

// Encode serializes a valid action for the wire.
func Encode(a Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(wireAction{
		ActionID:   string(a.ID),
		UserID:     a.UserID,
		Timestamp:  a.Timestamp,
		ActionType: string(a.Type),
		ShapeID:    string(a.ShapeID),
		PrevState:  toWireState(a.PrevState),
		NewState:   toWireState(a.NewState),
	})
}

// Decode parses and validates a wire action. Every failure wraps ErrMalformed
// or ErrUnknownActionType.
func Decode(data []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	prev, err := fromWireState(w.PrevState)
	if err != nil {
		return Action{}, err
	}
	next, err := fromWireState(w.NewState)
	if err != nil {
		return Action{}, err
	}
	a := Action{
		ID:        ID(w.ActionID),
		UserID:    w.UserID,
		Timestamp: w.Timestamp,
		Type:      Type(w.ActionType),
		ShapeID:   state.ShapeID(w.ShapeID),
		PrevState: prev,
		NewState:  next,
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

func EncodeState(st *state.ShapeState) ([]byte, error) {
	w := toWireState(st)
	if w == nil {
		return nil, fmt.Errorf("%w: empty shape state", ErrMalformed)
	}
	return json.Marshal(w)
}

func DecodeState(data []byte) (*state.ShapeState, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromWireState(&w)
}

// EncodeSnapshot serializes a full canvas for session bootstrap.
func EncodeSnapshot(shapes map[state.ShapeID]*state.ShapeState) ([]byte, error) {
	out := make(map[string]*wireState, len(shapes))
	for id, st := range shapes {
		w := toWireState(st)
		if w == nil {
			continue
		}
		out[string(id)] = w
	}
	return json.Marshal(out)
}

func DecodeSnapshot(data []byte) (map[state.ShapeID]*state.ShapeState, error) {
	var in map[string]*wireState
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[state.ShapeID]*state.ShapeState, len(in))
	for id, w := range in {
		if w == nil {
			return nil, fmt.Errorf("%w: null state for %s", ErrMalformed, id)
		}
		st, err := fromWireState(w)
		if err != nil {
			return nil, err
		}
		if string(st.ID()) != id {
			return nil, fmt.Errorf("%w: key %s holds shape %s", ErrMalformed, id, st.ID())
		}
		out[state.ShapeID(id)] = st
	}
	return out, nil
}
