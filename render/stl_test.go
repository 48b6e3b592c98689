package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/cast/internal/d3"
	"github.com/soypat/cast/mesh"
	"github.com/soypat/cast/render"
)

func TestSTLWriteReadback(t *testing.T) {
	const tol = 1e-5
	input := mesh.Tube(10, 40, 48, 20).Soup()
	var b bytes.Buffer
	err := render.WriteSTL(&b, input)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 84+50*len(input) {
		t.Fatalf("binary STL size got %d, want %d", b.Len(), 84+50*len(input))
	}
	output, err := render.ReadSTL(&b)
	if err != nil {
		t.Fatal(err)
	}
	if len(output) != len(input) {
		t.Fatal("length of triangles written/read not equal")
	}
	mismatches := 0
	for iface, expect := range input {
		got := output[iface]
		for i := range expect {
			if !d3.EqualWithin(got[i], expect[i], tol) {
				mismatches++
				t.Errorf("%dth triangle equality out of tolerance. got vertex %0.5g, want %0.5g", iface, got[i], expect[i])
			}
		}
		if mismatches > 10 {
			t.Fatal("too many mismatches")
		}
	}
}

func TestSTLCreateWriteRead(t *testing.T) {
	model := mesh.Grid(3, 2, 6, 4).Soup()
	path := filepath.Join(t.TempDir(), "grid.stl")
	err := render.CreateSTL(path, model)
	if err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = render.WriteSTL(&b, model)
	if err != nil {
		t.Fatal(err)
	}
	if b.String() != string(bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
	got, err := render.ReadSTLFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(model) {
		t.Errorf("read %d triangles, want %d", len(got), len(model))
	}
}

func TestSTLWriteEmpty(t *testing.T) {
	var b bytes.Buffer
	if err := render.WriteSTL(&b, nil); err == nil {
		t.Fatal("expected error writing empty model")
	}
}

func TestReadASCIISTL(t *testing.T) {
	const src = `solid square
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 1 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid square
`
	model, err := render.ReadSTL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != 2 {
		t.Fatalf("got %d triangles, want 2", len(model))
	}
	if model[1][2].Y != 1 {
		t.Errorf("unexpected last vertex %v", model[1][2])
	}
	m, err := mesh.New(model, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != 4 {
		t.Errorf("welded square has %d vertices, want 4", len(m.Vertices))
	}
}

func TestReadASCIISTLMalformed(t *testing.T) {
	const src = `solid bad
  facet normal 0 0 1
    outer loop
      vertex 0 0
    endloop
  endfacet
endsolid bad
`
	if _, err := render.ReadSTL(strings.NewReader(src)); err == nil {
		t.Fatal("expected error for vertex with two coordinates")
	}
}
