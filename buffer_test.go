package cast

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBufferAngleFromPolylines(t *testing.T) {
	a := []r3.Vec{{X: 5, Z: -4}, {X: 5, Z: 0}, {X: 5, Z: 4}}
	b := []r3.Vec{{Y: 5, Z: -1}, {Y: 5, Z: 3}, {Y: 5, Z: 9}}
	got, err := BufferAngleFromPolylines(r3.Vec{}, r3.Vec{Z: 2}, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-90) > 1e-9 {
		t.Errorf("got %g°, want 90°", got)
	}
	_, err = BufferAngleFromPolylines(r3.Vec{}, r3.Vec{Z: 1}, nil, b)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("empty polyline: got %v, want ErrFormat", err)
	}
	_, err = BufferAngleFromPolylines(r3.Vec{}, r3.Vec{}, a, b)
	if !errors.Is(err, ErrValue) {
		t.Errorf("zero normal: got %v, want ErrValue", err)
	}
}
