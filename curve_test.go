package cast

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/cast/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// axialCenterline returns a raw centerline along Z: interior points from
// z=5 to z=35 in unit steps, then the start point at z=0 and end at z=40.
func axialCenterline() []r3.Vec {
	var raw []r3.Vec
	for z := 5; z <= 35; z++ {
		raw = append(raw, r3.Vec{Z: float64(z)})
	}
	return append(raw, r3.Vec{Z: 0}, r3.Vec{Z: 40})
}

func TestResample(t *testing.T) {
	raw := axialCenterline()
	c, err := Resample(raw, DefaultStep)
	if err != nil {
		t.Fatal(err)
	}
	// 1 start point, 16 points up to raw[0], 31 interior, 16 points to the end.
	if len(c) != 64 {
		t.Fatalf("got %d points, want 64", len(c))
	}
	if c[0] != raw[len(raw)-2] {
		t.Errorf("first point %v is not the start point", c[0])
	}
	if c[len(c)-1] != raw[len(raw)-1] {
		t.Errorf("last point %v is not the end point", c[len(c)-1])
	}
	if !d3.EqualWithin(c[16], raw[0], 1e-12) || c[17] != raw[0] {
		t.Errorf("junction points %v %v, want both at %v", c[16], c[17], raw[0])
	}
	for i := 1; i < len(c); i++ {
		if c[i].Z < c[i-1].Z {
			t.Fatalf("curve not monotone at %d: %v after %v", i, c[i], c[i-1])
		}
	}
	for i := 1; i <= 16; i++ {
		if d := c[i].Z - c[i-1].Z; math.Abs(d-5./16) > 1e-9 {
			t.Fatalf("start extension step %d is %g, want %g", i, d, 5./16)
		}
	}
}

func TestResampleBadInput(t *testing.T) {
	_, err := Resample([]r3.Vec{{}, {X: 1}}, DefaultStep)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("two point centerline: got %v, want ErrFormat", err)
	}
	_, err = Resample(axialCenterline(), 0)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("zero step: got %v, want ErrFormat", err)
	}
	// Coincident start and first interior point add no extension points.
	raw := []r3.Vec{{Z: 0}, {Z: 1}, {Z: 2}, {Z: 0}, {Z: 2}}
	c, err := Resample(raw, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 1+0+3+0 {
		t.Errorf("got %d points, want 4", len(c))
	}
}

func straightCurve(n int, step float64) Curve {
	c := make(Curve, n)
	for i := range c {
		c[i] = r3.Vec{Z: float64(i) * step}
	}
	return c
}

func TestPaddedLength(t *testing.T) {
	c := straightCurve(11, 1)
	if got := PaddedLength(c, 2, 3, 1); got != 5 {
		t.Errorf("got padded length %g, want 5", got)
	}
	if got := PaddedLength(c, 0, 0, 1); got != 10 {
		t.Errorf("got unpadded length %g, want 10", got)
	}
	if got := PaddedLength(c, 8, 8, 1); got != 0 {
		t.Errorf("got overpadded length %g, want 0", got)
	}
}

func TestSliceSpacing(t *testing.T) {
	if got := SliceSpacing(100, 3); math.Abs(got-49) > 1e-12 {
		t.Errorf("got spacing %g, want 49", got)
	}
	if got := SliceSpacing(100, 1); !math.IsInf(got, 1) {
		t.Errorf("single ring: got spacing %g, want +Inf", got)
	}
}

func TestEqualSpacedIndices(t *testing.T) {
	const step = 0.3
	c := straightCurve(200, step)
	startPad, endPad := 3., 6.
	length := PaddedLength(c, startPad, endPad, step)
	for _, rings := range []int{1, 2, 5, 12, 400} {
		spacing := SliceSpacing(length, rings)
		idx, err := EqualSpacedIndices(c, spacing, startPad, endPad, step)
		if err != nil {
			t.Fatalf("rings=%d: %v", rings, err)
		}
		if idx[0] != padCount(startPad, step)+1 {
			t.Errorf("rings=%d: first index %d, want %d", rings, idx[0], padCount(startPad, step)+1)
		}
		for i, v := range idx {
			if v >= len(c)-1-padCount(endPad, step) {
				t.Errorf("rings=%d: index %d in end padding", rings, v)
			}
			if i > 0 && v <= idx[i-1] {
				t.Fatalf("rings=%d: indices not strictly increasing: %v", rings, idx)
			}
		}
		if rings <= 12 && len(idx) > rings {
			t.Errorf("rings=%d: got %d stations", rings, len(idx))
		}
	}
	_, err := EqualSpacedIndices(c, 1, 40, 40, step)
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("padding longer than curve: got %v, want ErrGeometryMismatch", err)
	}
	_, err = EqualSpacedIndices(c, 0, 0, 0, step)
	if !errors.Is(err, ErrValue) {
		t.Errorf("zero spacing: got %v, want ErrValue", err)
	}
}

func TestStationCountMatchesRings(t *testing.T) {
	const step = 0.3
	c := straightCurve(2000, step)
	startPad, endPad := 20., 10.
	length := PaddedLength(c, startPad, endPad, step)
	for _, rings := range []int{3, 5, 8} {
		idx, err := EqualSpacedIndices(c, SliceSpacing(length, rings), startPad, endPad, step)
		if err != nil {
			t.Fatal(err)
		}
		if len(idx) != rings {
			t.Errorf("rings=%d: got %d stations %v", rings, len(idx), idx)
		}
	}
}
