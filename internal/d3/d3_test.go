package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAngle(t *testing.T) {
	for _, test := range []struct {
		a, b r3.Vec
		want float64
	}{
		{r3.Vec{X: 1}, r3.Vec{X: 3}, 0},
		{r3.Vec{X: 1}, r3.Vec{Y: 2}, math.Pi / 2},
		{r3.Vec{X: 1}, r3.Vec{X: -1}, math.Pi},
		{r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, math.Pi / 4},
	} {
		if got := Angle(test.a, test.b); math.Abs(got-test.want) > 1e-12 {
			t.Errorf("Angle(%v, %v) = %g, want %g", test.a, test.b, got, test.want)
		}
	}
}

func TestBoxQueries(t *testing.T) {
	bb := EmptyBox().Include(r3.Vec{X: -1, Y: -1, Z: -1}).Include(r3.Vec{X: 1, Y: 2, Z: 3})
	if got := bb.Size(); got != (r3.Vec{X: 2, Y: 3, Z: 4}) {
		t.Errorf("size %v", got)
	}
	if got := bb.MinDist2(r3.Vec{X: 4, Y: 0, Z: 0}); got != 9 {
		t.Errorf("outside distance² %g, want 9", got)
	}
	if got := bb.MinDist2(r3.Vec{}); got != 0 {
		t.Errorf("inside distance² %g, want 0", got)
	}
	z := r3.Vec{Z: 1}
	if bb.PlaneSide(r3.Vec{Z: 5}, z) != -1 || bb.PlaneSide(r3.Vec{Z: -5}, z) != 1 || bb.PlaneSide(r3.Vec{}, z) != 0 {
		t.Error("bad plane classification")
	}
}

func TestSetMean(t *testing.T) {
	if got := (Set{}).Mean(); got != (r3.Vec{}) {
		t.Errorf("empty mean %v", got)
	}
	if got := (Set{{X: 1}, {X: 3, Y: 2}}).Mean(); got != (r3.Vec{X: 2, Y: 1}) {
		t.Errorf("mean %v", got)
	}
}
