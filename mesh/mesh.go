// Package mesh implements an indexed triangle surface. Vertices shared by
// neighbouring triangles are stored once so that edge based operations such
// as plane cuts and clipping produce a conforming result.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/cast/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle given by its three vertex positions.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle following the right hand rule.
func (t Triangle) Normal() r3.Vec {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate returns true if two vertices of the triangle are within tol of each other.
func (t Triangle) Degenerate(tol float64) bool {
	return d3.EqualWithin(t[0], t[1], tol) ||
		d3.EqualWithin(t[1], t[2], tol) ||
		d3.EqualWithin(t[2], t[0], tol)
}

// Mesh is an indexed triangle surface.
type Mesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
}

// New welds a triangle soup into an indexed mesh. Vertices closer than
// vertexTol share an index. If vertexTolOrZero is 0 it is inferred from the
// shortest triangle edge.
func New(triangles []Triangle, vertexTolOrZero float64) (*Mesh, error) {
	if len(triangles) == 0 {
		return nil, errors.New("no triangles in mesh")
	}
	bb := d3.EmptyBox()
	minDist2 := math.MaxFloat64
	maxDist2 := -math.MaxFloat64
	for i := range triangles {
		for j, vert := range triangles[i] {
			bb = bb.Include(vert)
			side2 := r3.Norm2(r3.Sub(triangles[i][(j+1)%3], vert))
			if side2 > 0 {
				minDist2 = math.Min(minDist2, side2)
			}
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	if minDist2 == math.MaxFloat64 {
		return nil, errors.New("all triangles are degenerate")
	}
	tol := vertexTolOrZero
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return nil, fmt.Errorf("vertex tolerance is too large to generate appropiate mesh, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	maxDim := d3.Max(bb.Size())
	if maxDim/tol > math.MaxInt64/2 {
		return nil, errors.New("tolerance too small. overflowed int64")
	}
	m := &Mesh{Triangles: make([][3]int, 0, len(triangles))}
	// vertex index cache keyed by position in resolution-space.
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	for _, tri := range triangles {
		var idx [3]int
		for j, vert := range tri {
			v := r3.Scale(ri, r3.Sub(vert, bb.Min))
			vi := [3]int64{int64(math.Round(v.X)), int64(math.Round(v.Y)), int64(math.Round(v.Z))}
			vertexIdx, ok := cache[vi]
			if !ok {
				vertexIdx = len(m.Vertices)
				cache[vi] = vertexIdx
				m.Vertices = append(m.Vertices, vert)
			}
			idx[j] = vertexIdx
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue // collapsed by welding.
		}
		m.Triangles = append(m.Triangles, idx)
	}
	return m, nil
}

// Len returns the number of triangles in the mesh.
func (m *Mesh) Len() int { return len(m.Triangles) }

// Triangle returns the ith triangle's geometry.
func (m *Mesh) Triangle(i int) Triangle {
	t := m.Triangles[i]
	return Triangle{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Soup returns the triangles of the mesh as a non-indexed slice, ready
// to be written to a triangle file.
func (m *Mesh) Soup() []Triangle {
	out := make([]Triangle, len(m.Triangles))
	for i := range m.Triangles {
		out[i] = m.Triangle(i)
	}
	return out
}

// Bounds returns the bounding box of the mesh vertices.
func (m *Mesh) Bounds() r3.Box {
	bb := d3.EmptyBox()
	for _, v := range m.Vertices {
		bb = bb.Include(v)
	}
	return r3.Box(bb)
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices:  append([]r3.Vec(nil), m.Vertices...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
}

// Compact removes vertices not referenced by any triangle and
// renumbers triangle indices accordingly. Vertex order is preserved.
func (m *Mesh) Compact() {
	used := make([]int, len(m.Vertices))
	for i := range used {
		used[i] = -1
	}
	for _, t := range m.Triangles {
		for _, vi := range t {
			used[vi] = 0
		}
	}
	n := 0
	for i := range m.Vertices {
		if used[i] < 0 {
			continue
		}
		used[i] = n
		m.Vertices[n] = m.Vertices[i]
		n++
	}
	m.Vertices = m.Vertices[:n]
	for i, t := range m.Triangles {
		m.Triangles[i] = [3]int{used[t[0]], used[t[1]], used[t[2]]}
	}
}

// Validate checks triangle indices are in range and vertices are finite.
func (m *Mesh) Validate() error {
	for i, v := range m.Vertices {
		if !d3.IsFinite(v) {
			return fmt.Errorf("vertex %d is not finite: %v", i, v)
		}
	}
	n := len(m.Vertices)
	for i, t := range m.Triangles {
		for _, vi := range t {
			if vi < 0 || vi >= n {
				return fmt.Errorf("triangle %d references vertex %d out of range [0,%d)", i, vi, n)
			}
		}
	}
	return nil
}
