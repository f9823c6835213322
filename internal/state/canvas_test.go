package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(id ShapeID, x float64) *Shape {
	return &Shape{
		ID:        id,
		Kind:      KindRectangle,
		Points:    []Point{{X: x, Y: 0}, {X: x + 10, Y: 10}},
		Color:     0xFF000000,
		Thickness: 2,
		CreatedBy: "alice",
	}
}

func TestShapeStateEqualIgnoresLastModified(t *testing.T) {
	t0 := time.Unix(100, 0)
	a := NewShapeState(rect("R1", 0), false, t0)
	b := NewShapeState(rect("R1", 0), false, t0.Add(time.Hour))
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(NewShapeState(rect("R1", 0), true, t0)))
	assert.False(t, a.Equal(NewShapeState(rect("R1", 5), false, t0)))
	assert.False(t, a.Equal(nil))

	var none *ShapeState
	assert.True(t, none.Equal(nil))
}

func TestShapeStateIsIsolatedFromCaller(t *testing.T) {
	sh := rect("R1", 0)
	st := NewShapeState(sh, false, time.Time{})

	sh.Points[0].X = 999
	assert.Equal(t, 0.0, st.Shape().Points[0].X)

	out := st.Shape()
	out.Points[0].X = 42
	assert.Equal(t, 0.0, st.Shape().Points[0].X)
}

func TestCanvasApplyAndGet(t *testing.T) {
	cs := NewCanvasState()
	_, ok := cs.Get("R1")
	assert.False(t, ok)

	require.NoError(t, cs.ApplyState("R1", NewShapeState(rect("R1", 0), false, time.Now())))
	st, ok := cs.Get("R1")
	require.True(t, ok)
	assert.Equal(t, ShapeID("R1"), st.ID())
	assert.Equal(t, 1, cs.Len())

	assert.ErrorIs(t, cs.ApplyState("", NewShapeState(rect("R1", 0), false, time.Now())), ErrNilState)
	assert.ErrorIs(t, cs.ApplyState("R2", nil), ErrNilState)
}

func TestCanvasVisibleShapesSkipsDeletedAndKeepsOrder(t *testing.T) {
	cs := NewCanvasState()
	now := time.Now()
	require.NoError(t, cs.ApplyState("B", NewShapeState(rect("B", 0), false, now)))
	require.NoError(t, cs.ApplyState("A", NewShapeState(rect("A", 20), false, now)))
	require.NoError(t, cs.ApplyState("C", NewShapeState(rect("C", 40), true, now)))
	// Overwriting keeps the original z position.
	require.NoError(t, cs.ApplyState("B", NewShapeState(rect("B", 5), false, now)))

	visible := cs.VisibleShapes()
	require.Len(t, visible, 2)
	assert.Equal(t, ShapeID("B"), visible[0].ID)
	assert.Equal(t, 5.0, visible[0].Points[0].X)
	assert.Equal(t, ShapeID("A"), visible[1].ID)

	snap := cs.Snapshot()
	assert.Len(t, snap, 3)
	assert.True(t, snap["C"].Deleted())
}

func TestCanvasReplaceAllOrdersByLastModified(t *testing.T) {
	cs := NewCanvasState()
	require.NoError(t, cs.ApplyState("OLD", NewShapeState(rect("OLD", 0), false, time.Now())))

	t0 := time.Unix(1000, 0)
	cs.ReplaceAll(map[ShapeID]*ShapeState{
		"late":  NewShapeState(rect("late", 0), false, t0.Add(2*time.Second)),
		"early": NewShapeState(rect("early", 0), false, t0),
		"mid":   NewShapeState(rect("mid", 0), false, t0.Add(time.Second)),
	})

	_, ok := cs.Get("OLD")
	assert.False(t, ok)
	visible := cs.VisibleShapes()
	require.Len(t, visible, 3)
	assert.Equal(t, []ShapeID{"early", "mid", "late"},
		[]ShapeID{visible[0].ID, visible[1].ID, visible[2].ID})

	cs.Clear()
	assert.Equal(t, 0, cs.Len())
}

func TestCanvasConcurrentApply(t *testing.T) {
	cs := NewCanvasState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewShapeID()
			_ = cs.ApplyState(id, NewShapeState(rect(id, 0), false, time.Now()))
			cs.VisibleShapes()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, cs.Len())
}

func TestParseShapeKind(t *testing.T) {
	for _, k := range []string{"freehand", "rectangle", "ellipse", "triangle", "line"} {
		got, err := ParseShapeKind(k)
		require.NoError(t, err)
		assert.Equal(t, ShapeKind(k), got)
	}
	_, err := ParseShapeKind("hexagon")
	assert.Error(t, err)
}

func TestShapeBounds(t *testing.T) {
	s := Shape{Points: []Point{{X: 5, Y: -1}, {X: -3, Y: 4}, {X: 2, Y: 9}}}
	min, max := s.Bounds()
	assert.Equal(t, Point{X: -3, Y: -1}, min)
	assert.Equal(t, Point{X: 5, Y: 9}, max)
}

func TestStepClockIsMonotonic(t *testing.T) {
	c := &StepClock{Base: time.Unix(0, 0)}
	a, b := c.Now(), c.Now()
	assert.True(t, b.After(a))
	assert.Equal(t, time.Millisecond, b.Sub(a))
}
