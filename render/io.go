package render

import (
	"bufio"
	"os"

	"github.com/soypat/cast/mesh"
)

// ReadSTLFile reads all triangles of the STL file at path.
func ReadSTLFile(path string) ([]mesh.Triangle, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadSTL(fp)
}

// ReadVTPFile reads the VTK XML PolyData file at path.
func ReadVTPFile(path string) (*PolyData, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadVTP(bufio.NewReader(fp))
}

// CreateVTP writes pd as a VTK XML PolyData file at path.
func CreateVTP(path string, pd *PolyData) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fp)
	err = WriteVTP(w, pd)
	if err == nil {
		err = w.Flush()
	}
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	return err
}
