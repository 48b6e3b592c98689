package cast

import (
	"fmt"

	"github.com/soypat/cast/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// IndexMode selects how tangent sampling treats indices past the curve ends.
type IndexMode int

const (
	// WrapIndices takes indices modulo the curve length. Stations near
	// either end then mix in points from the opposite end of the curve.
	WrapIndices IndexMode = iota
	// ClampIndices keeps sample indices inside the curve.
	ClampIndices
)

func (m IndexMode) String() string {
	switch m {
	case WrapIndices:
		return "wrap"
	case ClampIndices:
		return "clamp"
	}
	return fmt.Sprintf("IndexMode(%d)", int(m))
}

// TangentConfig controls the finite difference window of LocalTangent.
type TangentConfig struct {
	// HalfWindow is the number of indices sampled on each side.
	HalfWindow int
	// Stride is the distance between samples.
	Stride int
	Mode   IndexMode
}

// DefaultTangentConfig returns the window used for station tangents.
func DefaultTangentConfig() TangentConfig {
	return TangentConfig{HalfWindow: 12, Stride: 3, Mode: WrapIndices}
}

// LocalTangent averages the normalized finite differences c[i]-c[i-1] for
// i = index-HalfWindow ... index+HalfWindow in steps of Stride. Duplicate
// points are skipped. The average is scaled by Stride, so the result
// points along the curve but is not of unit length.
func LocalTangent(c Curve, index int, cfg TangentConfig) (r3.Vec, error) {
	n := len(c)
	if n < 2 {
		return r3.Vec{}, fmt.Errorf("%w: curve has %d points", ErrDegenerateTangent, n)
	}
	if cfg.Stride < 1 || cfg.HalfWindow < 0 {
		return r3.Vec{}, fmt.Errorf("%w: tangent window %d stride %d", ErrValue, cfg.HalfWindow, cfg.Stride)
	}
	var (
		sum   r3.Vec
		count int
	)
	for i := index - cfg.HalfWindow; i <= index+cfg.HalfWindow; i += cfg.Stride {
		cur, prev := cfg.Mode.pair(i, n)
		diff := r3.Sub(c[cur], c[prev])
		norm := r3.Norm(diff)
		if norm == 0 {
			continue
		}
		sum = r3.Add(sum, r3.Scale(1/norm, diff))
		count++
	}
	if count == 0 {
		return r3.Vec{}, fmt.Errorf("%w: all samples around index %d are duplicate points", ErrDegenerateTangent, index)
	}
	return r3.Scale(float64(cfg.Stride)/float64(count), sum), nil
}

// pair returns the sample index and its predecessor for sample i.
func (m IndexMode) pair(i, n int) (cur, prev int) {
	if m == ClampIndices {
		cur = max(1, min(i, n-1))
		return cur, cur - 1
	}
	return mod(i, n), mod(i-1, n)
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// MeanTangent returns the arithmetic mean of the tangents. It is used as the
// single cutting plane normal shared by all stations, which is a good
// approximation only for roughly straight tubes.
func MeanTangent(tangents []r3.Vec) r3.Vec {
	return d3.Set(tangents).Mean()
}
