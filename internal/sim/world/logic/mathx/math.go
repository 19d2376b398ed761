package mathx

import "math"

func MinInt(a, b int) int {
	if a <= b {
		return a
	}
	return b
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Vec2 is a continuous 2D vector. Grid cells convert into it for distance and
// steering math; results go back to cells through a best-cell search.
type Vec2 struct {
	X float64
	Y float64
}

func V(x, y int) Vec2 { return Vec2{X: float64(x), Y: float64(y)} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns v scaled to unit length. The zero vector stays zero.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

func Dist(a, b Vec2) float64 { return a.Sub(b).Len() }
