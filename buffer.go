package cast

import (
	"fmt"
	"math"

	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// BufferAngleFromPolylines returns, in degrees, the angle at center between
// the points of a and b closest to center, measured in the plane
// perpendicular to normal. The two polylines mark the edges of the opening.
func BufferAngleFromPolylines(center, normal r3.Vec, a, b []r3.Vec) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: buffer polylines must not be empty", ErrFormat)
	}
	if r3.Norm2(normal) == 0 {
		return 0, fmt.Errorf("%w: zero normal", ErrValue)
	}
	n := r3.Unit(normal)
	edge := func(line []r3.Vec) (r3.Vec, error) {
		loc, err := kernel.NewLocator(line)
		if err != nil {
			return r3.Vec{}, err
		}
		off := r3.Sub(line[loc.Nearest(center)], center)
		off = r3.Sub(off, r3.Scale(r3.Dot(off, n), n)) // project onto the plane.
		if r3.Norm2(off) == 0 {
			return r3.Vec{}, fmt.Errorf("%w: buffer polyline passes through the centerline", ErrValue)
		}
		return off, nil
	}
	ea, err := edge(a)
	if err != nil {
		return 0, err
	}
	eb, err := edge(b)
	if err != nil {
		return 0, err
	}
	return d3.Angle(ea, eb) * 180 / math.Pi, nil
}
