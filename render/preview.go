package render

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/cast/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ViewConfig positions the camera for a mesh preview. The mesh is fit into
// a bi-unit cube centered at the origin before drawing.
type ViewConfig struct {
	// what position (point) to look at
	Lookat r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	Eyepos r3.Vec
	Far    float64
	Near   float64
	// Output size in pixels.
	Width, Height int
	// Supersampling factor used for antialiasing.
	Scale int
}

// DefaultView looks at the origin from an oblique corner with Z up.
func DefaultView() ViewConfig {
	return ViewConfig{
		Up:     r3.Vec{Z: 1},
		Eyepos: r3.Vec{X: 3, Y: 3, Z: 3},
		Near:   1,
		Far:    10,
		Width:  1024,
		Height: 768,
		Scale:  2,
	}
}

// Preview renders the triangles with a phong shader and returns the image.
func Preview(model []mesh.Triangle, view ViewConfig) (image.Image, error) {
	if len(model) == 0 {
		return nil, errors.New("no triangles to preview")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	if view.Scale < 1 {
		view.Scale = 1
	}
	const fovy = 30 // vertical field of view in degrees
	tris := make([]*fauxgl.Triangle, len(model))
	for i, t := range model {
		tris[i] = fauxgl.NewTriangleForPoints(fauxV(t[0]), fauxV(t[1]), fauxV(t[2]))
	}
	fmesh := fauxgl.NewTriangleMesh(tris)
	var (
		eye    = fauxV(view.Eyepos)                   // camera position
		center = fauxV(view.Lookat)                   // view center position
		up     = fauxV(view.Up)                       // up vector
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize() // light direction
		color  = fauxgl.HexColor("#468966")           // object color
	)
	// fit mesh in a bi-unit cube centered at the origin
	fmesh.BiUnitCube()
	context := fauxgl.NewContext(view.Width*view.Scale, view.Height*view.Scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(fmesh)
	// downsample image for antialiasing
	img := context.Image()
	return resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear), nil
}

// CreatePreviewPNG renders model and saves the result as a PNG file.
func CreatePreviewPNG(path string, model []mesh.Triangle, view ViewConfig) error {
	img, err := Preview(model, view)
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

func fauxV(v r3.Vec) fauxgl.Vector {
	return fauxgl.V(v.X, v.Y, v.Z)
}
