// Package report draws diagnostic plots of a hole plan.
package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/soypat/cast"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default plot size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Offsets plots the angle of every hole from the opening point against the
// station it was placed at. Dashed lines mark the ideal angles; the
// vertical distance of a point from its line is the angular error the
// search accepted.
func Offsets(plan *cast.Plan) (*plot.Plot, error) {
	if plan == nil || len(plan.Stations) == 0 {
		return nil, errors.New("plan has no stations")
	}
	p := plot.New()
	p.Title.Text = "Hole offsets"
	p.X.Label.Text = "station"
	p.Y.Label.Text = "offset from opening (°)"
	p.Y.Min, p.Y.Max = 0, 360

	var pts plotter.XYs
	maxHoles := 0
	for i, st := range plan.Stations {
		for _, off := range st.Offsets {
			pts = append(pts, plotter.XY{X: float64(i), Y: off})
		}
		maxHoles = max(maxHoles, len(st.Offsets))
	}
	last := float64(len(plan.Stations) - 1)
	for k := 1; k <= maxHoles; k++ {
		ideal := plan.StepDeg*float64(k) + plan.BufferDeg/2
		line, err := plotter.NewLine(plotter.XYs{{X: 0, Y: ideal}, {X: last, Y: ideal}})
		if err != nil {
			return nil, err
		}
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		p.Add(sc)
		p.Legend.Add("hole", sc)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// WriteOffsets writes the offsets plot to w in the given format, one of
// the formats supported by gonum plot such as "png", "svg" or "pdf".
func WriteOffsets(w io.Writer, plan *cast.Plan, format string) error {
	p, err := Offsets(plan)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveOffsets saves the offsets plot to path. The format is chosen by the
// file extension.
func SaveOffsets(path string, plan *cast.Plan) error {
	p, err := Offsets(plan)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		return fmt.Errorf("plot file %q has no extension", path)
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("saving %s plot: %w", strings.TrimPrefix(filepath.Ext(path), "."), err)
	}
	return nil
}
