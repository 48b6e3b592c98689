package cast

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/kernel"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// circleKernel cuts every plane into a circle of points around the plane
// origin in the XY plane, one point per angle in degrees. Subtract is not
// supported.
type circleKernel struct {
	radius float64
	angles []float64
}

func newCircleKernel(radius float64, stepDeg float64) *circleKernel {
	k := &circleKernel{radius: radius}
	for a := 0.; a < 360; a += stepDeg {
		k.angles = append(k.angles, a)
	}
	return k
}

func (k *circleKernel) Cut(m *mesh.Mesh, origin, normal r3.Vec) ([]r3.Vec, error) {
	ring := make([]r3.Vec, len(k.angles))
	for i, a := range k.angles {
		sin, cos := math.Sincos(a * math.Pi / 180)
		ring[i] = r3.Add(origin, r3.Vec{X: k.radius * cos, Y: k.radius * sin})
	}
	return ring, nil
}

func (k *circleKernel) Nearest(points []r3.Vec, q r3.Vec) (int, error) {
	return kernel.Clipper{}.Nearest(points, q)
}

func (k *circleKernel) Subtract(m *mesh.Mesh, center r3.Vec, radius float64) (*mesh.Mesh, error) {
	return nil, errors.New("circleKernel cannot subtract")
}

func ringTestConfig(holes int, buffer, tol float64) PlanConfig {
	return PlanConfig{
		HolesPerStation: holes,
		BufferDeg:       buffer,
		ToleranceDeg:    tol,
		Marker:          r3.Vec{X: 50},
	}
}

// checkOffsets verifies every hole lies within half the tolerance of its
// ideal angle from the opening.
func checkOffsets(t *testing.T, st StationPlan, cfg PlanConfig) {
	t.Helper()
	if len(st.Holes) != cfg.HolesPerStation-1 || len(st.Offsets) != len(st.Holes) {
		t.Fatalf("got %d holes and %d offsets, want %d", len(st.Holes), len(st.Offsets), cfg.HolesPerStation-1)
	}
	uniform := (360 - cfg.BufferDeg) / float64(cfg.HolesPerStation)
	for i, off := range st.Offsets {
		want := uniform*float64(i+1) + cfg.BufferDeg/2
		if math.Abs(off-want) >= cfg.ToleranceDeg/2 {
			t.Errorf("hole %d at %.4f°, want %.4f±%g°", i, off, want, cfg.ToleranceDeg/2)
		}
		if i > 0 && off <= st.Offsets[i-1] {
			t.Errorf("hole %d does not advance the sweep: %v", i, st.Offsets)
		}
	}
	if last := st.Offsets[len(st.Offsets)-1]; 360-last < cfg.BufferDeg/2 {
		t.Errorf("last hole at %g° intrudes on the opening arc", last)
	}
}

func TestPlanHolesUniform(t *testing.T) {
	c := straightCurve(100, 0.3)
	cfg := ringTestConfig(6, 0, 1)
	plan, err := PlanHoles(newCircleKernel(5, 1), nil, c, []int{40, 60}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Master != c[0] {
		t.Errorf("master %v, want %v", plan.Master, c[0])
	}
	if len(plan.Stations) != 2 {
		t.Fatalf("got %d stations", len(plan.Stations))
	}
	for _, st := range plan.Stations {
		if want := r3.Add(st.Center, r3.Vec{X: 5}); !d3.EqualWithin(st.Opening, want, 1e-12) {
			t.Errorf("opening %v, want %v", st.Opening, want)
		}
		checkOffsets(t, st, cfg)
		for i, h := range st.Holes {
			sin, cos := math.Sincos(float64(60*(i+1)) * math.Pi / 180)
			want := r3.Add(st.Center, r3.Vec{X: 5 * cos, Y: 5 * sin})
			if !d3.EqualWithin(h, want, 1e-9) {
				t.Errorf("hole %d at %v, want %v", i, h, want)
			}
		}
		if st.Passes != 5 {
			t.Errorf("got %d passes, want 5", st.Passes)
		}
	}
	if got := len(plan.Centers()); got != 10 {
		t.Errorf("got %d centers, want 10", got)
	}
	holes := plan.Holes(2)
	if len(holes) != 10 || holes[0].Radius != 2 || holes[0].Center != plan.Stations[0].Holes[0] {
		t.Errorf("unexpected holes %v", holes)
	}
	lines := plan.OpeningLines()
	if len(lines) != 1 || len(lines[0]) != 2 {
		t.Errorf("got opening lines %v", lines)
	}
}

func TestPlanHolesBuffer(t *testing.T) {
	c := straightCurve(100, 0.3)
	cfg := ringTestConfig(5, 40, 1)
	plan, err := PlanHoles(newCircleKernel(5, 1), nil, c, []int{50}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	st := plan.Stations[0]
	checkOffsets(t, st, cfg)
	want := []float64{84, 148, 212, 276}
	for i := range want {
		if math.Abs(st.Offsets[i]-want[i]) > 1e-6 {
			t.Errorf("offsets %v, want %v", st.Offsets, want)
			break
		}
	}
}

func TestPlanHolesTwoSided(t *testing.T) {
	c := straightCurve(100, 0.3)
	cfg := ringTestConfig(4, 20, 2)
	cfg.TwoSided = true
	plan, err := PlanHoles(newCircleKernel(5, 1), nil, c, []int{30, 50, 70}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	lines := plan.OpeningLines()
	if len(lines) != 2 {
		t.Fatalf("got %d opening lines, want 2", len(lines))
	}
	for i, st := range plan.Stations {
		if want := r3.Add(st.Center, r3.Vec{X: -5}); !d3.EqualWithin(lines[1][i], want, 1e-9) {
			t.Errorf("opposite point %v, want %v", lines[1][i], want)
		}
	}
}

func TestPlanHolesConcurrent(t *testing.T) {
	c := straightCurve(200, 0.3)
	stations := []int{20, 40, 60, 80, 100, 120, 140, 160}
	cfg := ringTestConfig(7, 30, 1.5)
	k := newCircleKernel(8, 0.5)
	want, err := PlanHoles(k, nil, c, stations, cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 4
	got, err := PlanHoles(k, nil, c, stations, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("concurrent plan differs from sequential plan")
	}
}

func TestPlanHolesToleranceExceeded(t *testing.T) {
	c := straightCurve(100, 0.3)
	k := &circleKernel{radius: 5, angles: []float64{0, 10, 20, 30, 40}}
	_, err := PlanHoles(k, nil, c, []int{50}, ringTestConfig(5, 0, 1))
	if !errors.Is(err, ErrToleranceExceeded) {
		t.Fatalf("got %v, want ErrToleranceExceeded", err)
	}
	var serr *StationError
	if !errors.As(err, &serr) || serr.Station != 0 || serr.Index != 50 {
		t.Errorf("error %v does not name the station", err)
	}
}

func TestPlanHolesGeometryMismatch(t *testing.T) {
	c := straightCurve(100, 0.3)
	empty := &circleKernel{radius: 5}
	_, err := PlanHoles(empty, nil, c, []int{50}, ringTestConfig(5, 0, 1))
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("empty ring: got %v, want ErrGeometryMismatch", err)
	}
	small := &circleKernel{radius: 5, angles: []float64{0, 90, 180}}
	_, err = PlanHoles(small, nil, c, []int{50}, ringTestConfig(5, 0, 1))
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("small ring: got %v, want ErrGeometryMismatch", err)
	}
	_, err = PlanHoles(newCircleKernel(5, 1), nil, c, nil, ringTestConfig(5, 0, 1))
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("no stations: got %v, want ErrGeometryMismatch", err)
	}
}

func TestPlanHolesBadValues(t *testing.T) {
	c := straightCurve(100, 0.3)
	k := newCircleKernel(5, 1)
	for name, cfg := range map[string]PlanConfig{
		"one hole":       ringTestConfig(1, 0, 1),
		"full buffer":    ringTestConfig(5, 360, 1),
		"zero tol":       ringTestConfig(5, 0, 0),
		"marker on axis": {HolesPerStation: 5, ToleranceDeg: 1, Marker: r3.Vec{Z: 100}},
		"nan marker":     {HolesPerStation: 5, ToleranceDeg: 1, Marker: r3.Vec{X: math.NaN()}},
	} {
		_, err := PlanHoles(k, nil, c, []int{50}, cfg)
		if !errors.Is(err, ErrValue) {
			t.Errorf("%s: got %v, want ErrValue", name, err)
		}
	}
	_, err := PlanHoles(k, nil, c, []int{50, 40}, ringTestConfig(5, 0, 1))
	if !errors.Is(err, ErrValue) {
		t.Errorf("unordered stations: got %v, want ErrValue", err)
	}
}

func TestPlanHolesOnTube(t *testing.T) {
	const radius = 10.
	tube := mesh.Tube(radius, 40, 120, 40)
	c := straightCurve(130, 0.3)
	cfg := ringTestConfig(6, 30, 4)
	cfg.Marker = r3.Vec{X: 50, Z: 20}
	plan, err := PlanHoles(kernel.Clipper{}, tube, c, []int{21, 61, 101}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range plan.Stations {
		checkOffsets(t, st, cfg)
		for _, h := range st.Holes {
			if math.Abs(h.Z-st.Center.Z) > 1e-9 {
				t.Errorf("hole %v off the cutting plane z=%g", h, st.Center.Z)
			}
			if r := math.Hypot(h.X, h.Y); r < radius-0.05 || r > radius+1e-9 {
				t.Errorf("hole %v not on the tube surface", h)
			}
		}
		if st.Opening.X < radius-0.05 || math.Abs(st.Opening.Y) > 0.3 {
			t.Errorf("opening %v not on the marker side", st.Opening)
		}
	}
}

func TestPlanHolesTightTolerance(t *testing.T) {
	c := straightCurve(100, 0.3)
	_, err := PlanHoles(newCircleKernel(5, 0.7), nil, c, []int{50}, ringTestConfig(5, 0, 0.001))
	if !errors.Is(err, ErrToleranceExceeded) {
		t.Fatalf("got %v, want ErrToleranceExceeded", err)
	}
}
