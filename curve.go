package cast

import (
	"fmt"
	"math"

	"github.com/soypat/cast/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultStep is the resampling step of the guide curve in model units.
const DefaultStep = 0.3

// Curve is an ordered sequence of points.
type Curve []r3.Vec

// Resample densifies a raw centerline. The raw layout follows centerline
// extraction tools that store the interior of the curve first and append
// the true start and end points last:
//
//	raw[0] ... raw[n-3]   interior points
//	raw[n-2]              start point
//	raw[n-1]              end point
//
// The result runs from the start point to raw[0] in steps of about step,
// then through the interior points, then from raw[n-3] to the end point.
// The interpolated interval counts are floor(segment length / step).
func Resample(raw []r3.Vec, step float64) (Curve, error) {
	n := len(raw)
	if n < 3 {
		return nil, fmt.Errorf("%w: centerline needs at least 3 points, got %d", ErrFormat, n)
	}
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("%w: resample step must be positive, got %g", ErrFormat, step)
	}
	start := raw[n-2]
	end := raw[n-1]
	out := make(Curve, 0, n+int(r3.Norm(r3.Sub(raw[0], start))/step)+int(r3.Norm(r3.Sub(end, raw[n-3]))/step)+1)
	out = append(out, start)
	out = extend(out, start, raw[0], step)
	out = append(out, raw[:n-2]...)
	out = extend(out, raw[n-3], end, step)
	return out, nil
}

// extend appends k points evenly spaced along from->to, excluding from and
// including to, where k = floor(|to-from|/step).
func extend(dst Curve, from, to r3.Vec, step float64) Curve {
	k := int(r3.Norm(r3.Sub(to, from)) / step)
	for i := 1; i <= k; i++ {
		dst = append(dst, d3.Lerp(from, to, float64(i)/float64(k)))
	}
	return dst
}

// padCount converts a physical padding distance to a number of curve points.
func padCount(pad, step float64) int {
	return int(pad / step)
}

// PaddedLength returns the arc length of the curve after skipping the start
// and end padding regions.
func PaddedLength(c Curve, startPad, endPad, step float64) float64 {
	sp, ep := padCount(startPad, step), padCount(endPad, step)
	var total float64
	for i := 1 + sp; i < len(c)-ep; i++ {
		total += r3.Norm(r3.Sub(c[i], c[i-1]))
	}
	return total
}

// SliceSpacing returns the station spacing that places the requested number
// of rings over length. The length is shrunk by 2% so every station falls
// inside the padded segment.
func SliceSpacing(length float64, rings int) float64 {
	if rings < 2 {
		return math.Inf(1)
	}
	return length * 0.98 / float64(rings-1)
}

// EqualSpacedIndices walks the curve between the padded regions and returns
// indices spaced at about spacing arc length. The first index past the
// start padding is always returned, even if the curve is shorter than
// spacing, so that a run always has at least one station.
// Indices are strictly increasing.
func EqualSpacedIndices(c Curve, spacing, startPad, endPad, step float64) ([]int, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %g", ErrValue, step)
	}
	sp, ep := padCount(startPad, step), padCount(endPad, step)
	first, stop := sp+1, len(c)-1-ep
	if first >= stop {
		return nil, fmt.Errorf("%w: padding %g,%g leaves no curve to drill (%d points)", ErrGeometryMismatch, startPad, endPad, len(c))
	}
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil, fmt.Errorf("%w: station spacing must be positive, got %g", ErrValue, spacing)
	}
	indices := []int{first}
	var sum float64
	for i := first; i < stop; i++ {
		sum += r3.Norm(r3.Sub(c[i], c[i-1]))
		if sum > spacing {
			if i != indices[len(indices)-1] {
				indices = append(indices, i)
			}
			sum = 0
		}
	}
	return indices, nil
}
