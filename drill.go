package cast

import (
	"context"
	"fmt"
	"time"

	"github.com/soypat/cast/kernel"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hole is a spherical hole to be subtracted from the surface.
type Hole struct {
	Center r3.Vec
	Radius float64
}

// Progress reports the state of a drilling run after a hole is committed.
type Progress struct {
	Done, Total int
	Elapsed     time.Duration
}

// Percent returns the completed fraction of the run in percent.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return 100 * float64(p.Done) / float64(p.Total)
}

// Drill subtracts every hole from the surface in order and returns the
// final surface. Each subtraction operates on the result of the previous
// one: holes near each other overlap and must not be combined from a common
// snapshot. On error the surface drilled so far is returned with the error;
// it is not safe to use as output. Drill with no holes returns s.
// If progress is not nil it is called after every subtraction.
func Drill(ctx context.Context, k kernel.Kernel, s *mesh.Mesh, holes []Hole, progress func(Progress)) (*mesh.Mesh, error) {
	start := time.Now()
	cur := s
	for i, h := range holes {
		if err := ctx.Err(); err != nil {
			return cur, fmt.Errorf("drilling stopped after %d/%d holes: %w", i, len(holes), err)
		}
		next, err := k.Subtract(cur, h.Center, h.Radius)
		if err != nil {
			return cur, fmt.Errorf("hole %d/%d at %v: %w", i+1, len(holes), h.Center, err)
		}
		cur = next
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(holes), Elapsed: time.Since(start)})
		}
	}
	return cur, nil
}
