package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/manager"
	"SyncBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func history(t *testing.T) []action.Action {
	t.Helper()
	f := action.NewFactory(&state.StepClock{Base: time.Unix(1700000000, 0)})
	cs := state.NewCanvasState()

	create, err := f.CreateCreate(state.Shape{
		ID:        "E1",
		Kind:      state.KindEllipse,
		Points:    []state.Point{{X: 0, Y: 0}, {X: 40, Y: 20}},
		Color:     0xFF00FF00,
		Thickness: 1,
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, cs.ApplyState(create.ShapeID, create.NewState))

	del, err := f.CreateDelete(cs, "E1", "bob")
	require.NoError(t, err)
	return []action.Action{create, del}
}

func TestAppendJournalsAndSnapshots(t *testing.T) {
	s, path := openTemp(t)
	actions := history(t)
	for _, a := range actions {
		require.NoError(t, s.Append(a))
	}
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Journal()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for i, raw := range entries {
		got, err := action.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, actions[i].ID, got.ID)
		assert.Equal(t, actions[i].Type, got.Type)
	}

	shapes, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.True(t, shapes["E1"].Deleted())
	assert.True(t, shapes["E1"].Equal(actions[1].NewState))
}

func TestSaveSnapshotReplacesShapes(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	for _, a := range history(t) {
		require.NoError(t, s.Append(a))
	}

	sh := state.Shape{ID: "L1", Kind: state.KindLine, Points: []state.Point{{X: 1, Y: 1}, {X: 9, Y: 9}}}
	require.NoError(t, s.SaveSnapshot(map[state.ShapeID]*state.ShapeState{
		"L1": state.NewShapeState(&sh, false, time.Unix(5, 0)),
	}))

	shapes, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	_, ok := shapes["L1"]
	assert.True(t, ok)

	entries, err := s.Journal()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEmptyStore(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	shapes, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, shapes)
	entries, err := s.Journal()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalReplayRebuildsHostCanvas(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)
	clock := &state.StepClock{Base: time.Unix(1700000000, 0)}
	h := manager.NewHost(manager.Config{UserID: "host", Clock: clock, Journal: s}, nil)

	sq := state.Shape{Kind: state.KindRectangle, Points: []state.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, Color: 0xFF000000, Thickness: 2}
	a, err := h.RequestCreate(ctx, sq)
	require.NoError(t, err)
	_, err = h.RequestCreate(ctx, sq)
	require.NoError(t, err)
	moved := *a.NewState.Shape()
	moved.Points = []state.Point{{X: 5, Y: 5}, {X: 20, Y: 20}}
	_, err = h.RequestModify(ctx, moved)
	require.NoError(t, err)
	_, err = h.RequestDelete(ctx, a.ShapeID)
	require.NoError(t, err)
	require.NoError(t, h.RequestUndo(ctx))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Journal()
	require.NoError(t, err)
	require.Len(t, entries, 5)

	rebuilt := manager.NewStandalone(manager.Config{UserID: "replay"})
	for _, raw := range entries {
		require.NoError(t, rebuilt.ProcessIncomingAction(ctx, raw))
	}
	want := h.CanvasState().Snapshot()
	got := rebuilt.CanvasState().Snapshot()
	require.Len(t, got, len(want))
	for id, st := range want {
		assert.True(t, st.Equal(got[id]), "shape %s", id)
	}

	snapshot, err := s.LoadSnapshot()
	require.NoError(t, err)
	for id, st := range want {
		assert.True(t, st.Equal(snapshot[id]), "snapshot of %s", id)
	}
}
