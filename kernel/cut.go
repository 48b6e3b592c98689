package kernel

import (
	"errors"

	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cut intersects the surface with the plane through origin and returns the
// intersection points in triangle traversal order. Points produced by an edge
// shared between triangles, and mesh vertices lying on the plane, appear once.
func Cut(m *mesh.Mesh, origin, normal r3.Vec) ([]r3.Vec, error) {
	if r3.Norm2(normal) == 0 || !d3.IsFinite(normal) {
		return nil, errors.New("cut plane normal must be finite and non-zero")
	}
	n := r3.Unit(normal)
	if d3.Box(m.Bounds()).PlaneSide(origin, n) != 0 {
		return nil, nil
	}
	dist := make([]float64, len(m.Vertices))
	for i, v := range m.Vertices {
		dist[i] = r3.Dot(n, r3.Sub(v, origin))
	}
	var (
		out       []r3.Vec
		edgeSeen  = make(map[[2]int]bool)
		vertSeen  = make(map[int]bool)
		addVertex = func(vi int) {
			if !vertSeen[vi] {
				vertSeen[vi] = true
				out = append(out, m.Vertices[vi])
			}
		}
	)
	for _, t := range m.Triangles {
		for j := range t {
			a, b := t[j], t[(j+1)%3]
			da, db := dist[a], dist[b]
			if da == 0 {
				addVertex(a)
				continue
			}
			if db == 0 || (da < 0) == (db < 0) {
				continue // no crossing, or crossing handled as a vertex.
			}
			edge := [2]int{a, b}
			if edge[0] > edge[1] {
				edge[0], edge[1] = edge[1], edge[0]
			}
			if edgeSeen[edge] {
				continue
			}
			edgeSeen[edge] = true
			// Interpolate from the lower index so shared edges agree bitwise.
			lo, hi := edge[0], edge[1]
			alpha := dist[lo] / (dist[lo] - dist[hi])
			out = append(out, d3.Lerp(m.Vertices[lo], m.Vertices[hi], alpha))
		}
	}
	return out, nil
}
