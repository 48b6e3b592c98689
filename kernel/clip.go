package kernel

import (
	"errors"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// sdfxImplicit adapts an sdfx SDF3 to the Implicit interface.
type sdfxImplicit struct {
	s sdf.SDF3
}

func (s sdfxImplicit) Evaluate(p r3.Vec) float64 {
	return s.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// Sphere returns the signed distance function of a sphere.
func Sphere(center r3.Vec, radius float64) (Implicit, error) {
	if radius <= 0 {
		return nil, errors.New("sphere radius must be positive")
	}
	if !d3.IsFinite(center) {
		return nil, errors.New("sphere center must be finite")
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, err
	}
	m := sdf.Translate3d(v3.Vec{X: center.X, Y: center.Y, Z: center.Z})
	return sdfxImplicit{s: sdf.Transform3D(s, m)}, nil
}

// Clip returns the part of the surface where f is non-negative. Triangles
// crossing the zero level of f are cut along their edges using linear
// interpolation of f, the same way a marching triangles step would.
// Vertices no longer referenced by a triangle are dropped.
func Clip(m *mesh.Mesh, f Implicit) *mesh.Mesh {
	vals := make([]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		vals[i] = f.Evaluate(v)
	}
	out := &mesh.Mesh{
		Vertices:  append(make([]r3.Vec, 0, len(m.Vertices)), m.Vertices...),
		Triangles: make([][3]int, 0, len(m.Triangles)),
	}
	// Intersection vertex index cache so neighbouring triangles share cut vertices.
	cut := make(map[[2]int]int)
	crossing := func(a, b int) int {
		switch {
		case vals[a] == 0:
			return a
		case vals[b] == 0:
			return b
		}
		edge := [2]int{a, b}
		if edge[0] > edge[1] {
			edge[0], edge[1] = edge[1], edge[0]
		}
		if idx, ok := cut[edge]; ok {
			return idx
		}
		lo, hi := edge[0], edge[1]
		alpha := vals[lo] / (vals[lo] - vals[hi])
		idx := len(out.Vertices)
		out.Vertices = append(out.Vertices, d3.Lerp(m.Vertices[lo], m.Vertices[hi], alpha))
		cut[edge] = idx
		return idx
	}
	poly := make([]int, 0, 6)
	push := func(vi int) {
		if len(poly) == 0 || poly[len(poly)-1] != vi {
			poly = append(poly, vi)
		}
	}
	for _, t := range m.Triangles {
		inside := 0
		for _, vi := range t {
			if vals[vi] < 0 {
				inside++
			}
		}
		switch inside {
		case 0:
			out.Triangles = append(out.Triangles, t)
			continue
		case 3:
			continue
		}
		poly = poly[:0]
		for j := range t {
			a, b := t[j], t[(j+1)%3]
			if vals[a] >= 0 {
				push(a)
			}
			if (vals[a] < 0) != (vals[b] < 0) {
				push(crossing(a, b))
			}
		}
		n := len(poly)
		if n > 1 && poly[n-1] == poly[0] {
			n--
		}
		// Fan triangulate the clipped polygon, skipping collapsed triangles.
		for k := 1; k+1 < n; k++ {
			tri := [3]int{poly[0], poly[k], poly[k+1]}
			if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
				continue
			}
			out.Triangles = append(out.Triangles, tri)
		}
	}
	out.Compact()
	return out
}
