package cast

import (
	"fmt"
	"math"
	"sync"

	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/kernel"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultOpeningBand is the distance from the opening plane within which a
// ring point may start a ring.
const DefaultOpeningBand = 10

// PlanConfig configures the ring search.
type PlanConfig struct {
	// HolesPerStation is one more than the number of holes placed on each
	// ring: the ring is divided in HolesPerStation sections and the section
	// boundary at the opening is left undrilled.
	HolesPerStation int
	// BufferDeg is the width in degrees of the excluded opening arc.
	BufferDeg float64
	// ToleranceDeg is the full width of the acceptance window around each
	// target angle.
	ToleranceDeg float64
	// Marker is a point on the opening side of the tube.
	Marker r3.Vec
	// OpeningBand bounds the distance, in model units, of the ring start
	// point from the plane through the master point spanned by the reference
	// vector and the cutting plane normal. The distance is measured along the
	// normalized sweep axis. Zero selects DefaultOpeningBand.
	OpeningBand float64
	// PerStationNormal cuts each ring with its own station tangent instead
	// of the mean tangent of all stations.
	PerStationNormal bool
	// TwoSided records a second opening line opposite to the marker.
	TwoSided bool
	// Workers is the number of stations planned concurrently. Values
	// below 2 plan sequentially.
	Workers int
	Tangent TangentConfig
}

func (cfg PlanConfig) validate() error {
	switch {
	case cfg.HolesPerStation < 2:
		return fmt.Errorf("%w: holes per station must be at least 2, got %d", ErrValue, cfg.HolesPerStation)
	case cfg.BufferDeg < 0 || cfg.BufferDeg >= 360 || math.IsNaN(cfg.BufferDeg):
		return fmt.Errorf("%w: buffer angle must be in [0,360), got %g", ErrValue, cfg.BufferDeg)
	case !(cfg.ToleranceDeg > 0):
		return fmt.Errorf("%w: angular tolerance must be positive, got %g", ErrValue, cfg.ToleranceDeg)
	case !d3.IsFinite(cfg.Marker):
		return fmt.Errorf("%w: opening marker must be finite, got %v", ErrValue, cfg.Marker)
	case cfg.OpeningBand < 0:
		return fmt.Errorf("%w: opening band must not be negative, got %g", ErrValue, cfg.OpeningBand)
	}
	return nil
}

// StationPlan holds the result of the ring search at one station.
type StationPlan struct {
	// Index is the curve index of the station.
	Index  int
	Center r3.Vec
	// Normal is the cutting plane normal used for the ring.
	Normal r3.Vec
	// Opening is the ring point the search started from.
	Opening r3.Vec
	// Opposite is the ring point opposite the opening, set for two sided plans.
	Opposite r3.Vec
	// Holes are the accepted hole centers in sweep order.
	Holes []r3.Vec
	// Offsets are the angles in degrees of each hole from Opening, measured in the sweep direction.
	Offsets []float64
	// Passes is the number of ring scans used.
	Passes int
}

// Plan is the output of PlanHoles.
type Plan struct {
	// Master is the curve point closest to the opening marker.
	Master r3.Vec
	// Reference points from Master to the opening marker.
	Reference r3.Vec
	// SweepAxis is the normal of the plane spanned by the mean station
	// tangent and Reference.
	SweepAxis r3.Vec
	// StepDeg is the ideal angle between consecutive holes of a ring and
	// BufferDeg the opening arc left undrilled.
	StepDeg   float64
	BufferDeg float64
	Stations  []StationPlan
	TwoSided  bool
}

// Centers returns all hole centers in planning order.
func (p *Plan) Centers() []r3.Vec {
	var out []r3.Vec
	for _, st := range p.Stations {
		out = append(out, st.Holes...)
	}
	return out
}

// Holes returns all planned holes with the given radius in planning order.
func (p *Plan) Holes(radius float64) []Hole {
	centers := p.Centers()
	holes := make([]Hole, len(centers))
	for i, c := range centers {
		holes[i] = Hole{Center: c, Radius: radius}
	}
	return holes
}

// OpeningLines returns the traced opening edge, one point per station.
// Two sided plans return a second line through the opposite points.
func (p *Plan) OpeningLines() [][]r3.Vec {
	line := make([]r3.Vec, len(p.Stations))
	for i, st := range p.Stations {
		line[i] = st.Opening
	}
	if !p.TwoSided {
		return [][]r3.Vec{line}
	}
	opposite := make([]r3.Vec, len(p.Stations))
	for i, st := range p.Stations {
		opposite[i] = st.Opposite
	}
	return [][]r3.Vec{line, opposite}
}

// PlanHoles cuts the surface at every station and places
// cfg.HolesPerStation-1 hole centers on each ring, starting at the opening
// marker side and sweeping around the ring in steps of
// (360-BufferDeg)/HolesPerStation degrees. The first hole is offset a
// further BufferDeg/2 so the opening arc stays undrilled. The surface is only read.
func PlanHoles(k kernel.Kernel, s *mesh.Mesh, c Curve, stations []int, cfg PlanConfig) (*Plan, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations to plan", ErrGeometryMismatch)
	}
	if cfg.OpeningBand == 0 {
		cfg.OpeningBand = DefaultOpeningBand
	}
	if cfg.Tangent == (TangentConfig{}) {
		cfg.Tangent = DefaultTangentConfig()
	}
	tangents := make([]r3.Vec, len(stations))
	for i, idx := range stations {
		if idx < 0 || idx >= len(c) || (i > 0 && idx <= stations[i-1]) {
			return nil, fmt.Errorf("%w: station %d index %d not strictly increasing within curve of %d points", ErrValue, i, idx, len(c))
		}
		t, err := LocalTangent(c, idx, cfg.Tangent)
		if err != nil {
			return nil, &StationError{Station: i, Index: idx, Err: err}
		}
		tangents[i] = t
	}
	shared := MeanTangent(tangents)
	if r3.Norm2(shared) == 0 {
		return nil, fmt.Errorf("%w: station tangents cancel out", ErrDegenerateTangent)
	}
	masterIdx, err := k.Nearest(c, cfg.Marker)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Master:    c[masterIdx],
		StepDeg:   (360 - cfg.BufferDeg) / float64(cfg.HolesPerStation),
		BufferDeg: cfg.BufferDeg,
		Stations:  make([]StationPlan, len(stations)),
		TwoSided:  cfg.TwoSided,
	}
	plan.Reference = r3.Sub(cfg.Marker, plan.Master)
	firstNormal := shared
	if cfg.PerStationNormal {
		firstNormal = tangents[0]
	}
	plan.SweepAxis = r3.Cross(firstNormal, plan.Reference)
	if r3.Norm2(plan.SweepAxis) == 0 {
		return nil, fmt.Errorf("%w: opening marker %v lies on the centerline axis", ErrValue, cfg.Marker)
	}
	sr := stationRunner{
		k:         k,
		s:         s,
		cfg:       cfg,
		master:    plan.Master,
		reference: plan.Reference,
		sweepUnit: r3.Unit(plan.SweepAxis),
	}
	for i, idx := range stations {
		plan.Stations[i] = StationPlan{Index: idx, Center: c[idx], Normal: shared}
		if cfg.PerStationNormal {
			plan.Stations[i].Normal = tangents[i]
		}
	}
	errs := make([]error, len(stations))
	run := func(i int) {
		if err := sr.plan(&plan.Stations[i]); err != nil {
			errs[i] = &StationError{Station: i, Index: stations[i], Err: err}
		}
	}
	if cfg.Workers < 2 {
		for i := range stations {
			run(i)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return plan, nil
	}
	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				run(i)
			}
		}()
	}
	for i := range stations {
		work <- i
	}
	close(work)
	wg.Wait()
	// Report the first failing station so concurrent planning fails the same way as sequential.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// stationRunner holds the state shared read-only by all stations.
type stationRunner struct {
	k         kernel.Kernel
	s         *mesh.Mesh
	cfg       PlanConfig
	master    r3.Vec
	reference r3.Vec
	sweepUnit r3.Vec
}

func (sr *stationRunner) plan(st *StationPlan) error {
	ring, err := sr.k.Cut(sr.s, st.Center, st.Normal)
	if err != nil {
		return err
	}
	want := sr.cfg.HolesPerStation - 1
	switch {
	case len(ring) == 0:
		return fmt.Errorf("%w: cutting plane does not intersect the surface", ErrGeometryMismatch)
	case len(ring) < want:
		return fmt.Errorf("%w: ring has %d points, need at least %d", ErrGeometryMismatch, len(ring), want)
	}
	start, ok := sr.openingPoint(ring, st.Center, sr.reference)
	if !ok {
		return fmt.Errorf("%w: no ring point on the opening side", ErrGeometryMismatch)
	}
	st.Opening = start
	if sr.cfg.TwoSided {
		opp, ok := mostAligned(ring, st.Center, r3.Scale(-1, sr.reference))
		if !ok {
			return fmt.Errorf("%w: no ring point opposite the opening", ErrGeometryMismatch)
		}
		st.Opposite = opp
	}
	search := newRingSearch(ring, st.Center, st.Normal, r3.Sub(start, st.Center), sr.cfg)
	for search.state != searchDone {
		search.step()
		if search.state == searchExhausted {
			return fmt.Errorf("%w: placed %d of %d holes in %d passes with tolerance %g° and buffer %g°",
				ErrToleranceExceeded, len(search.holes), want, search.passes, sr.cfg.ToleranceDeg, sr.cfg.BufferDeg)
		}
	}
	st.Holes = search.holes
	st.Offsets = search.offsets
	st.Passes = search.passes
	return nil
}

// openingPoint picks the ring point where the sweep starts. Candidates lie
// within the opening band of the plane through the master point spanned by
// the reference and plane normal, on the reference side of the center.
// Among candidates the one most aligned with the reference wins; the first
// in ring order breaks ties.
func (sr *stationRunner) openingPoint(ring []r3.Vec, center, reference r3.Vec) (r3.Vec, bool) {
	var (
		best    r3.Vec
		bestCos = math.Inf(-1)
		found   bool
	)
	for _, p := range ring {
		off := r3.Sub(p, center)
		if math.Abs(r3.Dot(r3.Sub(p, sr.master), sr.sweepUnit)) >= sr.cfg.OpeningBand || r3.Dot(off, reference) <= 0 {
			continue
		}
		if cos := r3.Cos(off, reference); cos > bestCos {
			best, bestCos, found = p, cos, true
		}
	}
	if found {
		return best, true
	}
	// Thin or offset rings may have no point inside the band.
	return mostAligned(ring, center, reference)
}

// mostAligned returns the ring point whose offset from center has the
// largest positive cosine with dir.
func mostAligned(ring []r3.Vec, center, dir r3.Vec) (r3.Vec, bool) {
	var (
		best    r3.Vec
		bestCos = 0.0
		found   bool
	)
	for _, p := range ring {
		off := r3.Sub(p, center)
		if r3.Norm2(off) == 0 {
			continue
		}
		if cos := r3.Cos(off, dir); cos > bestCos {
			best, bestCos, found = p, cos, true
		}
	}
	return best, found
}

type searchState int

const (
	searchSeeking searchState = iota
	searchAccepted
	searchExhausted
	searchDone
)

// ringSearch is the greedy angular search over one ring. Each call to step
// scans the ring once for the first point whose angle from the running
// vector falls in the window around target. Accepting a point advances the
// running vector to it and feeds the angular error back into the next target.
type ringSearch struct {
	ring    []r3.Vec
	center  r3.Vec
	normal  r3.Vec
	running r3.Vec

	uniform   float64 // degrees
	target    float64 // degrees
	tolerance float64 // degrees
	want      int
	maxPasses int

	state   searchState
	passes  int
	swept   float64
	holes   []r3.Vec
	offsets []float64
}

func newRingSearch(ring []r3.Vec, center, normal, start r3.Vec, cfg PlanConfig) *ringSearch {
	uniform := (360 - cfg.BufferDeg) / float64(cfg.HolesPerStation)
	return &ringSearch{
		ring:      ring,
		center:    center,
		normal:    normal,
		running:   start,
		uniform:   uniform,
		target:    uniform + cfg.BufferDeg/2, // reserve the opening arc before the first hole.
		tolerance: cfg.ToleranceDeg,
		want:      cfg.HolesPerStation - 1,
		maxPasses: cfg.HolesPerStation,
		state:     searchSeeking,
	}
}

func (rs *ringSearch) step() {
	if len(rs.holes) >= rs.want {
		rs.state = searchDone
		return
	}
	if rs.passes >= rs.maxPasses {
		rs.state = searchExhausted
		return
	}
	rs.passes++
	lo, hi := rs.target-rs.tolerance/2, rs.target+rs.tolerance/2
	rs.state = searchSeeking
	for _, p := range rs.ring {
		v := r3.Sub(p, rs.center)
		if r3.Dot(r3.Cross(rs.running, v), rs.normal) <= 0 {
			continue // behind the running vector.
		}
		angle := d3.Angle(rs.running, v) * 180 / math.Pi
		if angle <= lo || angle >= hi {
			continue
		}
		rs.running = v
		rs.swept += angle
		rs.holes = append(rs.holes, p)
		rs.offsets = append(rs.offsets, rs.swept)
		rs.target += rs.uniform - angle
		rs.state = searchAccepted
		break
	}
	if len(rs.holes) >= rs.want {
		rs.state = searchDone
	}
}
