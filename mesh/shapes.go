package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tube returns an open cylindrical surface of the given radius around the Z
// axis spanning z in [0, length]. The surface has segments vertices around
// and rows+1 rings of vertices along its length.
func Tube(radius, length float64, segments, rows int) *Mesh {
	if segments < 3 || rows < 1 {
		panic("tube needs at least 3 segments and 1 row")
	}
	m := &Mesh{
		Vertices:  make([]r3.Vec, 0, segments*(rows+1)),
		Triangles: make([][3]int, 0, 2*segments*rows),
	}
	for i := 0; i <= rows; i++ {
		z := float64(i) * length / float64(rows)
		for j := 0; j < segments; j++ {
			sin, cos := math.Sincos(2 * math.Pi * float64(j) / float64(segments))
			m.Vertices = append(m.Vertices, r3.Vec{X: radius * cos, Y: radius * sin, Z: z})
		}
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < segments; j++ {
			a := i*segments + j
			b := i*segments + (j+1)%segments
			c := a + segments
			d := b + segments
			m.Triangles = append(m.Triangles, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return m
}

// Grid returns a flat triangulated rectangle in the XY plane with its
// minimum corner at the origin, nx by ny cells.
func Grid(width, height float64, nx, ny int) *Mesh {
	if nx < 1 || ny < 1 {
		panic("grid needs at least one cell per side")
	}
	m := &Mesh{
		Vertices:  make([]r3.Vec, 0, (nx+1)*(ny+1)),
		Triangles: make([][3]int, 0, 2*nx*ny),
	}
	for i := 0; i <= ny; i++ {
		for j := 0; j <= nx; j++ {
			m.Vertices = append(m.Vertices, r3.Vec{
				X: float64(j) * width / float64(nx),
				Y: float64(i) * height / float64(ny),
			})
		}
	}
	stride := nx + 1
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			a := i*stride + j
			b := a + 1
			c := a + stride
			d := c + 1
			m.Triangles = append(m.Triangles, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return m
}
