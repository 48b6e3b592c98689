package kernel

import (
	"errors"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Locator answers nearest point queries over a fixed point set.
type Locator struct {
	tree kdtree.Tree
}

// NewLocator builds a kd-tree over points. Indices returned by Nearest refer
// to positions in points.
func NewLocator(points []r3.Vec) (*Locator, error) {
	if len(points) == 0 {
		return nil, errors.New("cannot locate in empty point set")
	}
	list := make(pointList, len(points))
	for i, p := range points {
		list[i] = indexedPoint{V: p, idx: i}
	}
	tree := kdtree.New(list, false)
	return &Locator{tree: *tree}, nil
}

// Nearest returns the index of the point closest to q.
func (l *Locator) Nearest(q r3.Vec) int {
	got, _ := l.tree.Nearest(&indexedPoint{V: q, idx: -1})
	return got.(*indexedPoint).idx
}

type indexedPoint struct {
	V   r3.Vec
	idx int
}

func (p *indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*indexedPoint)
	switch d {
	case 0:
		return p.V.X - q.V.X
	case 1:
		return p.V.Y - q.V.Y
	case 2:
		return p.V.Z - q.V.Z
	}
	panic("unreachable")
}

func (p *indexedPoint) Dims() int { return 3 }

func (p *indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(*indexedPoint)
	return r3.Norm2(r3.Sub(p.V, q.V))
}

type pointList []indexedPoint

// Index returns the ith element of the list of points.
func (l pointList) Index(i int) kdtree.Comparable { return &l[i] }

// Len returns the length of the list.
func (l pointList) Len() int { return len(l) }

// Pivot partitions the list based on the dimension specified.
func (l pointList) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: d, points: l}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (l pointList) Slice(start, end int) kdtree.Interface {
	return l[start:end]
}

type kdPlane struct {
	dim    kdtree.Dim
	points pointList
}

func (p kdPlane) Less(i, j int) bool {
	return p.points[i].Compare(&p.points[j], p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p kdPlane) Len() int {
	return len(p.points)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
