package geom

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec2 is a continuous position or direction on the grid plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(k float64) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Unit returns v scaled to length one, or the zero vector when v has no length.
func (v Vec2) Unit() Vec2 {
	n := v.Len()
	if n == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / n, Y: v.Y / n}
}

func (v Vec2) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Cell maps a continuous position to the grid cell that contains it.
func (v Vec2) Cell() (int, int) {
	return int(math.Floor(v.X)), int(math.Floor(v.Y))
}

func Dist(a, b Vec2) float64 {
	return a.Sub(b).Len()
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Box is an axis-aligned box with float edges. Overlap is strict: boxes that
// only share an edge do not overlap.
type Box struct {
	Left, Top, Right, Bottom float64
}

func BoxAround(center Vec2, half float64) Box {
	return Box{
		Left:   center.X - half,
		Top:    center.Y - half,
		Right:  center.X + half,
		Bottom: center.Y + half,
	}
}

func (b Box) Overlaps(o Box) bool {
	return b.Right > o.Left && b.Left < o.Right && b.Bottom > o.Top && b.Top < o.Bottom
}
