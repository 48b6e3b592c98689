package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// EmptyBox returns an inverted box that any call to Include will fix.
func EmptyBox() Box {
	return Box{Min: Elem(math.MaxFloat64), Max: Elem(-math.MaxFloat64)}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// MinDist2 returns the squared distance from p to the closest point of the box.
// Points inside the box have distance zero.
func (a Box) MinDist2(p r3.Vec) float64 {
	c := r3.Vec{
		X: clamp(p.X, a.Min.X, a.Max.X),
		Y: clamp(p.Y, a.Min.Y, a.Max.Y),
		Z: clamp(p.Z, a.Min.Z, a.Max.Z),
	}
	return r3.Norm2(r3.Sub(p, c))
}

// PlaneSide classifies the box against the plane through origin with normal n.
// It returns -1 or 1 when the box lies strictly on one side and 0 when the plane crosses it.
func (a Box) PlaneSide(origin, n r3.Vec) int {
	c := a.Center()
	half := r3.Scale(0.5, a.Size())
	radius := half.X*math.Abs(n.X) + half.Y*math.Abs(n.Y) + half.Z*math.Abs(n.Z)
	d := r3.Dot(n, r3.Sub(c, origin))
	switch {
	case d > radius:
		return 1
	case d < -radius:
		return -1
	}
	return 0
}

// Clamp x between a and b, assume a <= b
func clamp(x, a, b float64) float64 {
	return math.Min(b, math.Max(x, a))
}
