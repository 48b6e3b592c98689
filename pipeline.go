package cast

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/cast/kernel"
	"github.com/soypat/cast/mesh"
	"github.com/soypat/cast/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the lifecycle stage of a Pipeline.
type State int

const (
	Unloaded State = iota
	Loaded
	Planned
	Drilled
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Planned:
		return "planned"
	case Drilled:
		return "drilled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params are the run parameters of a Pipeline.
type Params struct {
	PlanConfig
	// Rings is the number of cutting stations requested along the curve.
	Rings int
	// Radius is the hole radius.
	Radius float64
	// StartPad and EndPad are distances along the curve kept free of holes.
	StartPad, EndPad float64
	// Step is the centerline resampling step. Zero selects DefaultStep.
	Step float64
	// BufferLines optionally define the opening by two polylines. The
	// buffer angle is then derived from them and BufferDeg must be zero.
	BufferLines [2][]r3.Vec
}

// Pipeline owns a surface and its centerline through one drilling run:
// Load, Plan, Drill and Write must be called in that order.
type Pipeline struct {
	k   kernel.Kernel
	log *slog.Logger

	state   State
	surface *mesh.Mesh
	raw     []r3.Vec
	curve   Curve
	radius  float64
	plan    *Plan
}

// NewPipeline returns an unloaded pipeline. A nil logger discards logs.
func NewPipeline(k kernel.Kernel, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Pipeline{k: k, log: logger}
}

// State returns the current lifecycle stage.
func (p *Pipeline) State() State { return p.state }

// Surface returns the surface in its current state.
func (p *Pipeline) Surface() *mesh.Mesh { return p.surface }

// Result returns the hole plan, or nil before planning.
func (p *Pipeline) Result() *Plan { return p.plan }

// Curve returns the resampled centerline, or nil before planning.
func (p *Pipeline) Curve() Curve { return p.curve }

// Load reads the surface and centerline files. Surfaces may be STL or VTK
// XML PolyData; centerlines must be VTK XML PolyData.
func (p *Pipeline) Load(surfacePath, curvePath string) error {
	surface, err := LoadSurface(surfacePath)
	if err != nil {
		return err
	}
	raw, err := LoadCurve(curvePath)
	if err != nil {
		return err
	}
	return p.LoadData(surface, raw)
}

// LoadData installs an in-memory surface and raw centerline. The pipeline
// takes ownership of surface.
func (p *Pipeline) LoadData(surface *mesh.Mesh, raw []r3.Vec) error {
	if p.state != Unloaded {
		return fmt.Errorf("load in state %s: inputs already loaded", p.state)
	}
	if surface == nil || surface.Len() == 0 {
		return fmt.Errorf("%w: empty surface", ErrFormat)
	}
	if err := surface.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw) < 3 {
		return fmt.Errorf("%w: centerline needs at least 3 points, got %d", ErrFormat, len(raw))
	}
	p.surface = surface
	p.raw = raw
	p.state = Loaded
	p.log.Info("inputs loaded", "vertices", len(surface.Vertices), "triangles", surface.Len(), "centerlinePoints", len(raw))
	return nil
}

// Plan resamples the centerline, selects stations and runs the ring search.
func (p *Pipeline) Plan(params Params) (*Plan, error) {
	if p.state < Loaded {
		return nil, ErrNotLoaded
	}
	if p.state > Planned {
		return nil, fmt.Errorf("plan in state %s: surface already drilled", p.state)
	}
	if params.Rings < 1 {
		return nil, fmt.Errorf("%w: ring count must be at least 1, got %d", ErrValue, params.Rings)
	}
	if !(params.Radius > 0) {
		return nil, fmt.Errorf("%w: hole radius must be positive, got %g", ErrValue, params.Radius)
	}
	if params.StartPad < 0 || params.EndPad < 0 {
		return nil, fmt.Errorf("%w: padding must not be negative, got %g,%g", ErrValue, params.StartPad, params.EndPad)
	}
	step := params.Step
	if step == 0 {
		step = DefaultStep
	}
	curve, err := Resample(p.raw, step)
	if err != nil {
		return nil, err
	}
	length := PaddedLength(curve, params.StartPad, params.EndPad, step)
	spacing := SliceSpacing(length, params.Rings)
	stations, err := EqualSpacedIndices(curve, spacing, params.StartPad, params.EndPad, step)
	if err != nil {
		return nil, err
	}
	p.log.Info("stations selected", "curvePoints", len(curve), "paddedLength", length, "spacing", spacing, "stations", len(stations))
	cfg := params.PlanConfig
	if params.BufferLines[0] != nil || params.BufferLines[1] != nil {
		if cfg.BufferDeg != 0 {
			return nil, fmt.Errorf("%w: buffer angle and buffer polylines are mutually exclusive", ErrValue)
		}
		master, err := p.k.Nearest(curve, cfg.Marker)
		if err != nil {
			return nil, err
		}
		tangentCfg := cfg.Tangent
		if tangentCfg == (TangentConfig{}) {
			tangentCfg = DefaultTangentConfig()
		}
		normal, err := LocalTangent(curve, master, tangentCfg)
		if err != nil {
			return nil, err
		}
		cfg.BufferDeg, err = BufferAngleFromPolylines(curve[master], normal, params.BufferLines[0], params.BufferLines[1])
		if err != nil {
			return nil, err
		}
		p.log.Info("buffer angle from polylines", "degrees", cfg.BufferDeg)
	}
	plan, err := PlanHoles(p.k, p.surface, curve, stations, cfg)
	if err != nil {
		return nil, err
	}
	p.curve = curve
	p.radius = params.Radius
	p.plan = plan
	p.state = Planned
	p.log.Info("holes planned", "stations", len(plan.Stations), "holes", len(plan.Centers()))
	return plan, nil
}

// Drill subtracts all planned holes from the surface. Progress is logged
// after every hole. On failure the surface is left partially drilled.
func (p *Pipeline) Drill(ctx context.Context) error {
	if p.state < Planned {
		return ErrNotPlanned
	}
	if p.state == Drilled {
		return errors.New("surface already drilled")
	}
	holes := p.plan.Holes(p.radius)
	p.log.Info("drilling", "holes", len(holes), "radius", p.radius)
	drilled, err := Drill(ctx, p.k, p.surface, holes, func(pr Progress) {
		p.log.Debug("hole drilled", "done", pr.Done, "total", pr.Total, "percent", fmt.Sprintf("%.2f", pr.Percent()), "elapsed", pr.Elapsed)
	})
	p.surface = drilled
	if err != nil {
		return err
	}
	p.state = Drilled
	p.log.Info("drilling finished", "vertices", len(drilled.Vertices), "triangles", drilled.Len())
	return nil
}

// WriteSurface writes the current surface as a binary STL file.
func (p *Pipeline) WriteSurface(path string) error {
	if p.state < Loaded {
		return ErrNotLoaded
	}
	if err := render.CreateSTL(path, p.surface.Soup()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}
	p.log.Info("surface written", "path", path)
	return nil
}

// WriteOpening writes the opening lines as a VTK XML PolyData file. The
// file name must end in .vtp.
func (p *Pipeline) WriteOpening(path string) error {
	if p.state < Planned {
		return ErrNotPlanned
	}
	if !strings.EqualFold(filepath.Ext(path), ".vtp") {
		return fmt.Errorf("%w: opening line file %q must end in .vtp", ErrFormat, path)
	}
	if err := render.CreateVTP(path, render.Polylines(p.plan.OpeningLines()...)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}
	p.log.Info("opening line written", "path", path)
	return nil
}

// LoadSurface reads a surface mesh from an STL or VTK XML PolyData file.
func LoadSurface(path string) (*mesh.Mesh, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	var (
		tris []mesh.Triangle
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		tris, err = render.ReadSTLFile(path)
	case ".vtp", ".vtk":
		var pd *render.PolyData
		pd, err = render.ReadVTPFile(path)
		if err == nil {
			tris, err = pd.Triangles()
		}
	default:
		return nil, fmt.Errorf("%w: surface file %q has unsupported extension", ErrFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading surface %s: %v", ErrFormat, path, err)
	}
	m, err := mesh.New(tris, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: surface %s: %v", ErrFormat, path, err)
	}
	return m, nil
}

// LoadCurve reads the points of a centerline from a VTK XML PolyData file.
// Points are returned in storage order regardless of line connectivity since
// Resample expects the start and end points stored last.
func LoadCurve(path string) ([]r3.Vec, error) {
	pd, err := loadPolyData(path, "centerline")
	if err != nil {
		return nil, err
	}
	return append([]r3.Vec(nil), pd.Points...), nil
}

// LoadPolyline reads the points of a polyline from a VTK XML PolyData file.
func LoadPolyline(path string) ([]r3.Vec, error) {
	return loadPolyline(path, "polyline")
}

func loadPolyline(path, what string) ([]r3.Vec, error) {
	pd, err := loadPolyData(path, what)
	if err != nil {
		return nil, err
	}
	return pd.LinePoints(), nil
}

func loadPolyData(path, what string) (*render.PolyData, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(path), ".vtp") {
		return nil, fmt.Errorf("%w: %s file %q must be VTK XML PolyData (.vtp)", ErrFormat, what, path)
	}
	pd, err := render.ReadVTPFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s: %v", ErrFormat, what, path, err)
	}
	return pd, nil
}

func checkExists(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return nil
}

// discardHandler drops all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
