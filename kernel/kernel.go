// Package kernel provides the geometry primitives the drilling pipeline
// delegates to: plane cuts of a surface, nearest point location and
// subtraction of a sphere volume from a surface.
package kernel

import (
	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kernel is the geometry kernel interface consumed by the planner and the
// drilling engine. Implementations must be deterministic: equal inputs yield
// equal outputs, including point order.
type Kernel interface {
	// Cut returns the points where the plane through origin with the given
	// normal intersects the surface. The result is empty if the plane misses.
	Cut(m *mesh.Mesh, origin, normal r3.Vec) ([]r3.Vec, error)
	// Nearest returns the index of the point in points closest to q.
	Nearest(points []r3.Vec, q r3.Vec) (int, error)
	// Subtract removes the part of the surface lying inside the sphere.
	// The argument mesh is not modified.
	Subtract(m *mesh.Mesh, center r3.Vec, radius float64) (*mesh.Mesh, error)
}

// Implicit is a scalar field whose negative region is the solid's interior.
// Signed distance functions satisfy Implicit.
type Implicit interface {
	Evaluate(p r3.Vec) float64
}

// Compile-time interface check.
var _ Kernel = Clipper{}

// Clipper implements Kernel by clipping triangles against implicit
// functions. The zero value is ready to use.
type Clipper struct{}

// Cut implements Kernel.
func (Clipper) Cut(m *mesh.Mesh, origin, normal r3.Vec) ([]r3.Vec, error) {
	return Cut(m, origin, normal)
}

// Nearest implements Kernel.
func (Clipper) Nearest(points []r3.Vec, q r3.Vec) (int, error) {
	loc, err := NewLocator(points)
	if err != nil {
		return -1, err
	}
	return loc.Nearest(q), nil
}

// Subtract implements Kernel.
func (Clipper) Subtract(m *mesh.Mesh, center r3.Vec, radius float64) (*mesh.Mesh, error) {
	s, err := Sphere(center, radius)
	if err != nil {
		return nil, err
	}
	if d3.Box(m.Bounds()).MinDist2(center) >= radius*radius {
		return m.Clone(), nil
	}
	return Clip(m, s), nil
}
