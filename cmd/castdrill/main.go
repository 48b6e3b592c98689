// Command castdrill perforates a tubular casting surface with rings of
// spherical holes along its centerline, leaving an undrilled opening strip
// on the side of a marker point.
//
// Usage:
//
//	castdrill -s surface.stl -c centerline.vtp -d x,y,z [flags]
//
// The exit status is 0 on success, 1 when an output cannot be written, 2 for
// missing or malformed inputs, 3 when the holes cannot be placed and 4 for
// invalid numeric parameters.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/cast"
	"github.com/soypat/cast/kernel"
	"github.com/soypat/cast/render"
	"github.com/soypat/cast/report"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(cast.ExitOK)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "castdrill:", err)
	}
	os.Exit(cast.ExitCode(err))
}

// config holds every castdrill option. Field names double as TOML keys.
type config struct {
	Surface         string  `toml:"surface"`
	Centerline      string  `toml:"centerline"`
	Output          string  `toml:"output"`
	Opening         string  `toml:"opening"`
	HolesPerRing    int     `toml:"holes_per_ring"`
	Rings           int     `toml:"rings"`
	Radius          float64 `toml:"radius"`
	Padding         string  `toml:"padding"`
	Tolerance       float64 `toml:"tolerance"`
	Marker          string  `toml:"marker"`
	BufferAngle     float64 `toml:"buffer_angle"`
	BufferPolylines string  `toml:"buffer_polylines"`
	TwoSided        bool    `toml:"two_sided"`
	Quiet           bool    `toml:"quiet"`

	Step             float64 `toml:"step"`
	Workers          int     `toml:"workers"`
	Clamp            bool    `toml:"clamp"`
	PerStationNormal bool    `toml:"per_station_normal"`
	Preview          string  `toml:"preview"`
	Plot             string  `toml:"plot"`
}

func defaultConfig() config {
	return config{
		Output:       "drilled.stl",
		Opening:      "buff.vtp",
		HolesPerRing: 5,
		Rings:        5,
		Radius:       5,
		Padding:      "20,10",
		Tolerance:    1,
		Step:         cast.DefaultStep,
		Workers:      1,
	}
}

func (c *config) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Surface, "s", c.Surface, "input surface `file` (.stl or .vtp)")
	fs.StringVar(&c.Centerline, "c", c.Centerline, "input centerline `file` (.vtp)")
	fs.StringVar(&c.Output, "o", c.Output, "output drilled surface STL `file`")
	fs.StringVar(&c.Opening, "O", c.Opening, "output opening line `file` (.vtp)")
	fs.IntVar(&c.HolesPerRing, "m", c.HolesPerRing, "holes per ring")
	fs.IntVar(&c.Rings, "n", c.Rings, "number of rings")
	fs.Float64Var(&c.Radius, "r", c.Radius, "hole radius")
	fs.StringVar(&c.Padding, "p", c.Padding, "undrilled `start,end` lengths of the centerline")
	fs.Float64Var(&c.Tolerance, "e", c.Tolerance, "angular tolerance in degrees")
	fs.StringVar(&c.Marker, "d", c.Marker, "opening marker `x,y,z`")
	fs.Float64Var(&c.BufferAngle, "b", c.BufferAngle, "opening arc left undrilled in degrees")
	fs.StringVar(&c.BufferPolylines, "B", c.BufferPolylines, "opening edges as `a.vtp;b.vtp`, overrides -b")
	fs.BoolVar(&c.TwoSided, "t", c.TwoSided, "also write the opening line opposite the marker")
	fs.BoolVar(&c.Quiet, "q", c.Quiet, "only log errors")
	fs.Float64Var(&c.Step, "step", c.Step, "centerline resampling step")
	fs.IntVar(&c.Workers, "workers", c.Workers, "stations planned concurrently")
	fs.BoolVar(&c.Clamp, "clamp", c.Clamp, "clamp tangent windows at the curve ends instead of wrapping")
	fs.BoolVar(&c.PerStationNormal, "per-station-normal", c.PerStationNormal, "cut each ring normal to its own tangent")
	fs.StringVar(&c.Preview, "preview", c.Preview, "write a PNG preview of the drilled surface to `file`")
	fs.StringVar(&c.Plot, "plot", c.Plot, "write a plot of hole offsets to `file`")
}

// parseConfig parses command line arguments. When -config names a TOML file
// its values replace the defaults and flags given on the command line
// override the file.
func parseConfig(args []string, output io.Writer) (config, error) {
	cfg := defaultConfig()
	var cfgPath string
	fs := newFlagSet(output, &cfg, &cfgPath)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cfg, err
		}
		return cfg, fmt.Errorf("%w: %v", cast.ErrFormat, err)
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("%w: unexpected arguments %q", cast.ErrFormat, fs.Args())
	}
	if cfgPath == "" {
		return cfg, nil
	}
	cfg = defaultConfig()
	if err := decodeConfigFile(cfgPath, &cfg); err != nil {
		return cfg, err
	}
	// Second pass over the same arguments with the file values as defaults.
	fs = newFlagSet(io.Discard, &cfg, &cfgPath)
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %v", cast.ErrFormat, err)
	}
	return cfg, nil
}

func newFlagSet(output io.Writer, cfg *config, cfgPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet("castdrill", flag.ContinueOnError)
	fs.SetOutput(output)
	cfg.register(fs)
	fs.StringVar(cfgPath, "config", *cfgPath, "read options from TOML `file`")
	return fs
}

func decodeConfigFile(path string, cfg *config) error {
	fp, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: config %s", cast.ErrNotFound, path)
	} else if err != nil {
		return err
	}
	defer fp.Close()
	dec := toml.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: config %s: %v", cast.ErrFormat, path, err)
	}
	return nil
}

// params converts the options to pipeline parameters.
func (c config) params() (cast.Params, error) {
	var p cast.Params
	if c.Marker == "" {
		return p, fmt.Errorf("%w: opening marker (-d) is required", cast.ErrValue)
	}
	marker, err := parseFloats(c.Marker, ",", 3)
	if err != nil {
		return p, fmt.Errorf("%w: marker %q: %v", cast.ErrFormat, c.Marker, err)
	}
	pad, err := parseFloats(c.Padding, ",", 2)
	if err != nil {
		return p, fmt.Errorf("%w: padding %q: %v", cast.ErrFormat, c.Padding, err)
	}
	p = cast.Params{
		PlanConfig: cast.PlanConfig{
			// The ring is divided in one more section than holes; the
			// extra boundary falls on the opening.
			HolesPerStation:  c.HolesPerRing + 1,
			BufferDeg:        c.BufferAngle,
			ToleranceDeg:     c.Tolerance,
			Marker:           r3.Vec{X: marker[0], Y: marker[1], Z: marker[2]},
			PerStationNormal: c.PerStationNormal,
			TwoSided:         c.TwoSided,
			Workers:          c.Workers,
			Tangent:          cast.DefaultTangentConfig(),
		},
		Rings:    c.Rings,
		Radius:   c.Radius,
		StartPad: pad[0],
		EndPad:   pad[1],
		Step:     c.Step,
	}
	if c.Clamp {
		p.Tangent.Mode = cast.ClampIndices
	}
	if c.BufferPolylines != "" {
		files := strings.Split(c.BufferPolylines, ";")
		if len(files) != 2 {
			return p, fmt.Errorf("%w: buffer polylines need exactly two files separated by ';', got %q", cast.ErrFormat, c.BufferPolylines)
		}
		for i, f := range files {
			line, err := cast.LoadPolyline(strings.TrimSpace(f))
			if err != nil {
				return p, err
			}
			p.BufferLines[i] = line
		}
		p.BufferDeg = 0
	}
	return p, nil
}

func parseFloats(s, sep string, n int) ([]float64, error) {
	fields := strings.Split(s, sep)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d values separated by %q, got %d", n, sep, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newLogger(w io.Writer, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}
	log := newLogger(stderr, cfg.Quiet)
	if cfg.Surface == "" || cfg.Centerline == "" {
		return fmt.Errorf("%w: surface (-s) and centerline (-c) are required", cast.ErrFormat)
	}
	params, err := cfg.params()
	if err != nil {
		return err
	}
	p := cast.NewPipeline(kernel.Clipper{}, log)
	if err := p.Load(cfg.Surface, cfg.Centerline); err != nil {
		return err
	}
	plan, err := p.Plan(params)
	if err != nil {
		return err
	}
	if err := p.Drill(ctx); err != nil {
		return err
	}
	if err := p.WriteSurface(cfg.Output); err != nil {
		return err
	}
	if cfg.BufferPolylines != "" {
		// The opening is given by the buffer polylines themselves.
		log.Info("opening line not written, buffer polylines supplied")
	} else if err := p.WriteOpening(cfg.Opening); err != nil {
		return err
	}
	if cfg.Preview != "" {
		if err := render.CreatePreviewPNG(cfg.Preview, p.Surface().Soup(), render.DefaultView()); err != nil {
			return fmt.Errorf("%w: preview %s: %v", cast.ErrWriteFailure, cfg.Preview, err)
		}
		log.Info("preview written", "path", cfg.Preview)
	}
	if cfg.Plot != "" {
		if err := report.SaveOffsets(cfg.Plot, plan); err != nil {
			return fmt.Errorf("%w: plot %s: %v", cast.ErrWriteFailure, cfg.Plot, err)
		}
		log.Info("plot written", "path", cfg.Plot)
	}
	return nil
}
