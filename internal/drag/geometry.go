package drag

import (
	"math"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// Point is a pointer position in screen coordinates.
type Point struct {
	X, Y float64
}

// Distance returns the straight-line distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Rect is an axis-aligned box; Min is inclusive, Max exclusive.
type Rect struct {
	Min, Max Point
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Geometry is the on-screen area of one column.
type Geometry struct {
	Column models.Column
	Bounds Rect
}

// HitTester resolves the column a pointer is over.
type HitTester interface {
	Target(p Point, geoms []Geometry) (models.Column, bool)
}

// HitTestFunc adapts a function to HitTester.
type HitTestFunc func(p Point, geoms []Geometry) (models.Column, bool)

func (f HitTestFunc) Target(p Point, geoms []Geometry) (models.Column, bool) {
	return f(p, geoms)
}

// ContainsPoint picks the first column whose bounds contain p.
func ContainsPoint(p Point, geoms []Geometry) (models.Column, bool) {
	for _, g := range geoms {
		if g.Column.IsValid() && g.Bounds.Contains(p) {
			return g.Column, true
		}
	}
	return "", false
}
