package physics

import "math"

// Vec2 is a 2D vector in world meters.
//
// Products are rounded explicitly with float32 conversions so that the
// compiler cannot fuse them into multiply-add instructions; every peer must
// obtain the same bits for the same inputs.
type Vec2 struct {
	X float32
	Y float32
}

// Zero returns the null vector.
func Zero() Vec2 { return Vec2{} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale multiplies both components by s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: float32(v.X * s), Y: float32(v.Y * s)}
}

// Dot returns the dot product.
func Dot(a, b Vec2) float32 {
	return float32(a.X*b.X) + float32(a.Y*b.Y)
}

func (v Vec2) SqrLength() float32 { return Dot(v, v) }

func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.SqrLength())))
}

// Normalized returns the unit vector of v, or the zero vector when v has no
// length.
func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// RightOrtho returns v rotated by -90 degrees.
func (v Vec2) RightOrtho() Vec2 {
	return Vec2{X: v.Y, Y: -v.X}
}

// Distance computes the Euclidean distance between two points.
func Distance(a, b Vec2) float32 { return b.Sub(a).Length() }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
