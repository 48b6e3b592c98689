package render

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// PolyData is the subset of a VTK PolyData dataset this package handles:
// points plus polyline and polygon cells referencing them by index.
type PolyData struct {
	Points []r3.Vec
	Lines  [][]int
	Polys  [][]int
}

// Polyline returns PolyData holding a single open polyline through points.
func Polyline(points []r3.Vec) *PolyData {
	return Polylines(points)
}

// Polylines returns PolyData holding one polyline per argument.
func Polylines(lines ...[]r3.Vec) *PolyData {
	pd := &PolyData{}
	for _, line := range lines {
		cell := make([]int, len(line))
		for i, p := range line {
			cell[i] = len(pd.Points)
			pd.Points = append(pd.Points, p)
		}
		pd.Lines = append(pd.Lines, cell)
	}
	return pd
}

// Triangles fan triangulates the polygon cells.
func (pd *PolyData) Triangles() ([]mesh.Triangle, error) {
	var out []mesh.Triangle
	for ic, cell := range pd.Polys {
		for _, idx := range cell {
			if idx < 0 || idx >= len(pd.Points) {
				return nil, fmt.Errorf("polygon %d references point %d out of range", ic, idx)
			}
		}
		for k := 1; k+1 < len(cell); k++ {
			out = append(out, mesh.Triangle{pd.Points[cell[0]], pd.Points[cell[k]], pd.Points[cell[k+1]]})
		}
	}
	return out, nil
}

// LinePoints returns the points of the polyline cells concatenated in cell
// order. If the dataset has no line cells the raw point order is returned,
// which is how centerline tools commonly store a single curve.
func (pd *PolyData) LinePoints() []r3.Vec {
	if len(pd.Lines) == 0 {
		return append([]r3.Vec(nil), pd.Points...)
	}
	var out []r3.Vec
	for _, cell := range pd.Lines {
		for _, idx := range cell {
			out = append(out, pd.Points[idx])
		}
	}
	return out
}

type vtkFile struct {
	XMLName    xml.Name   `xml:"VTKFile"`
	Type       string     `xml:"type,attr"`
	Version    string     `xml:"version,attr,omitempty"`
	ByteOrder  string     `xml:"byte_order,attr,omitempty"`
	HeaderType string     `xml:"header_type,attr,omitempty"`
	Compressor string     `xml:"compressor,attr,omitempty"`
	Pieces     []vtkPiece `xml:"PolyData>Piece"`
}

type vtkPiece struct {
	NumberOfPoints int         `xml:"NumberOfPoints,attr"`
	NumberOfVerts  int         `xml:"NumberOfVerts,attr"`
	NumberOfLines  int         `xml:"NumberOfLines,attr"`
	NumberOfStrips int         `xml:"NumberOfStrips,attr"`
	NumberOfPolys  int         `xml:"NumberOfPolys,attr"`
	Points         vtkDataList `xml:"Points"`
	Lines          vtkDataList `xml:"Lines"`
	Polys          vtkDataList `xml:"Polys"`
}

type vtkDataList struct {
	Arrays []vtkDataArray `xml:"DataArray"`
}

type vtkDataArray struct {
	Type               string `xml:"type,attr"`
	Name               string `xml:"Name,attr,omitempty"`
	NumberOfComponents int    `xml:"NumberOfComponents,attr,omitempty"`
	Format             string `xml:"format,attr"`
	Data               string `xml:",chardata"`
}

func (l vtkDataList) named(name string) (vtkDataArray, bool) {
	for _, a := range l.Arrays {
		if a.Name == name {
			return a, true
		}
	}
	return vtkDataArray{}, false
}

// ReadVTP decodes a VTK XML PolyData document. Data arrays may be stored in
// ascii or inline uncompressed base64 binary format.
func ReadVTP(r io.Reader) (*PolyData, error) {
	var f vtkFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding VTK XML: %w", err)
	}
	if f.Type != "PolyData" {
		return nil, fmt.Errorf("VTK file type %q is not PolyData", f.Type)
	}
	if f.Compressor != "" {
		return nil, fmt.Errorf("compressed VTK data (%s) not supported", f.Compressor)
	}
	if f.ByteOrder == "BigEndian" {
		return nil, errors.New("big endian VTK data not supported")
	}
	dec := arrayDecoder{header64: f.HeaderType == "UInt64"}
	pd := &PolyData{}
	for ip, piece := range f.Pieces {
		offset := len(pd.Points)
		if len(piece.Points.Arrays) != 1 {
			return nil, fmt.Errorf("piece %d: expected one points array, got %d", ip, len(piece.Points.Arrays))
		}
		coords, err := dec.floats(piece.Points.Arrays[0])
		if err != nil {
			return nil, fmt.Errorf("piece %d points: %w", ip, err)
		}
		if len(coords) != 3*piece.NumberOfPoints {
			return nil, fmt.Errorf("piece %d: got %d coordinates for %d points", ip, len(coords), piece.NumberOfPoints)
		}
		for i := 0; i < len(coords); i += 3 {
			pd.Points = append(pd.Points, r3.Vec{X: coords[i], Y: coords[i+1], Z: coords[i+2]})
		}
		lines, err := dec.cells(piece.Lines, piece.NumberOfLines, offset, len(pd.Points))
		if err != nil {
			return nil, fmt.Errorf("piece %d lines: %w", ip, err)
		}
		polys, err := dec.cells(piece.Polys, piece.NumberOfPolys, offset, len(pd.Points))
		if err != nil {
			return nil, fmt.Errorf("piece %d polys: %w", ip, err)
		}
		pd.Lines = append(pd.Lines, lines...)
		pd.Polys = append(pd.Polys, polys...)
	}
	if len(pd.Points) == 0 {
		return nil, errors.New("VTK PolyData has no points")
	}
	return pd, nil
}

type arrayDecoder struct {
	header64 bool
}

func (d arrayDecoder) cells(l vtkDataList, n, offset, npoints int) ([][]int, error) {
	if n == 0 {
		return nil, nil
	}
	connArr, ok := l.named("connectivity")
	if !ok {
		return nil, errors.New("missing connectivity array")
	}
	offArr, ok := l.named("offsets")
	if !ok {
		return nil, errors.New("missing offsets array")
	}
	conn, err := d.floats(connArr)
	if err != nil {
		return nil, err
	}
	offs, err := d.floats(offArr)
	if err != nil {
		return nil, err
	}
	if len(offs) != n {
		return nil, fmt.Errorf("got %d offsets for %d cells", len(offs), n)
	}
	cells := make([][]int, n)
	start := 0
	for i, o := range offs {
		end := int(o)
		if end < start || end > len(conn) {
			return nil, fmt.Errorf("cell %d offset %d out of range", i, end)
		}
		cell := make([]int, end-start)
		for k := range cell {
			idx := int(conn[start+k]) + offset
			if idx < offset || idx >= npoints {
				return nil, fmt.Errorf("cell %d references point %d out of range", i, idx-offset)
			}
			cell[k] = idx
		}
		cells[i] = cell
		start = end
	}
	return cells, nil
}

// floats decodes any numeric data array into float64 values.
func (d arrayDecoder) floats(a vtkDataArray) ([]float64, error) {
	switch a.Format {
	case "ascii":
		fields := strings.Fields(a.Data)
		out := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "binary":
		return d.binaryFloats(a)
	}
	return nil, fmt.Errorf("data array format %q not supported", a.Format)
}

func (d arrayDecoder) binaryFloats(a vtkDataArray) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.Data))
	if err != nil {
		return nil, err
	}
	hdr := 4
	if d.header64 {
		hdr = 8
	}
	if len(raw) < hdr {
		return nil, errors.New("binary data array too short for header")
	}
	var nbytes int
	if d.header64 {
		nbytes = int(binary.LittleEndian.Uint64(raw))
	} else {
		nbytes = int(binary.LittleEndian.Uint32(raw))
	}
	raw = raw[hdr:]
	if nbytes > len(raw) {
		return nil, fmt.Errorf("binary data array header declares %d bytes, have %d", nbytes, len(raw))
	}
	raw = raw[:nbytes]
	var size int
	var get func(b []byte) float64
	switch a.Type {
	case "Float32":
		size, get = 4, func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }
	case "Float64":
		size, get = 8, func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
	case "Int32":
		size, get = 4, func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) }
	case "Int64":
		size, get = 8, func(b []byte) float64 { return float64(int64(binary.LittleEndian.Uint64(b))) }
	case "UInt32":
		size, get = 4, func(b []byte) float64 { return float64(binary.LittleEndian.Uint32(b)) }
	case "UInt64":
		size, get = 8, func(b []byte) float64 { return float64(binary.LittleEndian.Uint64(b)) }
	default:
		return nil, fmt.Errorf("binary data array type %q not supported", a.Type)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("binary data length %d not a multiple of %d", len(raw), size)
	}
	out := make([]float64, len(raw)/size)
	for i := range out {
		out[i] = get(raw[i*size:])
	}
	return out, nil
}

// WriteVTP encodes pd as an ascii VTK XML PolyData document.
func WriteVTP(w io.Writer, pd *PolyData) error {
	if len(pd.Points) == 0 {
		return errors.New("no points to write")
	}
	piece := vtkPiece{
		NumberOfPoints: len(pd.Points),
		NumberOfLines:  len(pd.Lines),
		NumberOfPolys:  len(pd.Polys),
	}
	var sb strings.Builder
	for _, p := range pd.Points {
		fmt.Fprintf(&sb, "%g %g %g ", p.X, p.Y, p.Z)
	}
	piece.Points.Arrays = []vtkDataArray{{
		Type:               "Float64",
		NumberOfComponents: 3,
		Format:             "ascii",
		Data:               strings.TrimSpace(sb.String()),
	}}
	piece.Lines = cellArrays(pd.Lines)
	piece.Polys = cellArrays(pd.Polys)
	f := vtkFile{
		Type:      "PolyData",
		Version:   "0.1",
		ByteOrder: "LittleEndian",
		Pieces:    []vtkPiece{piece},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(f); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func cellArrays(cells [][]int) vtkDataList {
	if len(cells) == 0 {
		return vtkDataList{}
	}
	var conn, offs strings.Builder
	end := 0
	for _, cell := range cells {
		for _, idx := range cell {
			conn.WriteString(strconv.Itoa(idx))
			conn.WriteByte(' ')
		}
		end += len(cell)
		offs.WriteString(strconv.Itoa(end))
		offs.WriteByte(' ')
	}
	return vtkDataList{Arrays: []vtkDataArray{
		{Type: "Int64", Name: "connectivity", Format: "ascii", Data: strings.TrimSpace(conn.String())},
		{Type: "Int64", Name: "offsets", Format: "ascii", Data: strings.TrimSpace(offs.String())},
	}}
}
