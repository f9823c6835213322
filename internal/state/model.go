package state

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ShapeID identifies a shape for its whole lifetime, deletes included.
type ShapeID string

// NewShapeID returns a random shape id.
func NewShapeID() ShapeID {
	return ShapeID(uuid.NewString())
}

type Point struct{ X, Y float64 }

type ShapeKind string

const (
	KindFreehand  ShapeKind = "freehand"
	KindRectangle ShapeKind = "rectangle"
	KindEllipse   ShapeKind = "ellipse"
	KindTriangle  ShapeKind = "triangle"
	KindLine      ShapeKind = "line"
)

// ParseShapeKind accepts only the closed set of kinds the canvas can draw.
func ParseShapeKind(s string) (ShapeKind, error) {
	switch k := ShapeKind(s); k {
	case KindFreehand, KindRectangle, KindEllipse, KindTriangle, KindLine:
		return k, nil
	}
	return "", fmt.Errorf("unknown shape kind %q", s)
}

// Shape is the drawable geometry carried inside a ShapeState.
// Points is owned by whoever holds the Shape; use Clone before handing it on.
type Shape struct {
	ID            ShapeID
	Kind          ShapeKind
	Points        []Point
	Color         uint32 // ARGB
	Thickness     float64
	CreatedBy     string
	LastUpdatedBy string
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	s.Points = slices.Clone(s.Points)
	return s
}

func (s Shape) Equal(o Shape) bool {
	return s.ID == o.ID &&
		s.Kind == o.Kind &&
		s.Color == o.Color &&
		s.Thickness == o.Thickness &&
		s.CreatedBy == o.CreatedBy &&
		s.LastUpdatedBy == o.LastUpdatedBy &&
		slices.Equal(s.Points, o.Points)
}

// SameAppearance reports whether geometry, color and thickness match,
// ignoring who created or last touched the shape.
func (s Shape) SameAppearance(o Shape) bool {
	return s.Color == o.Color &&
		s.Thickness == o.Thickness &&
		slices.Equal(s.Points, o.Points)
}

// Bounds returns the bounding box of the shape's points.
func (s Shape) Bounds() (min, max Point) {
	if len(s.Points) == 0 {
		return Point{}, Point{}
	}
	min, max = s.Points[0], s.Points[0]
	for _, p := range s.Points[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}
