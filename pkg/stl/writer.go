package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// Save writes a model to filename in binary or ASCII format
func Save(filename string, model *Model, binaryFormat bool) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if binaryFormat {
		err = WriteBinary(file, model)
	} else {
		err = WriteASCII(file, model)
	}
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteASCII writes a model as an ASCII STL document
func WriteASCII(w io.Writer, model *Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", model.Name)
	for _, t := range model.Triangles {
		fmt.Fprintf(bw, "  facet normal %e %e %e\n", t.Normal.X, t.Normal.Y, t.Normal.Z)
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range t.Vertices() {
			fmt.Fprintf(bw, "      vertex %e %e %e\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", model.Name)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write ASCII STL: %w", err)
	}
	return nil
}

// WriteBinary writes a model as a binary STL document
func WriteBinary(w io.Writer, model *Model) error {
	bw := bufio.NewWriter(w)

	// The header must not start with "solid" or readers take it for ASCII
	var header [80]byte
	copy(header[:], "binary "+model.Name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(model.Triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for i, t := range model.Triangles {
		record := struct {
			Normal, V1, V2, V3 [3]float32
			Attribute          uint16
		}{
			Normal: toFloat32(t.Normal),
			V1:     toFloat32(t.V1),
			V2:     toFloat32(t.V2),
			V3:     toFloat32(t.V3),
		}
		if err := binary.Write(bw, binary.LittleEndian, record); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write binary STL: %w", err)
	}
	return nil
}

func toFloat32(v geometry.Vector3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
