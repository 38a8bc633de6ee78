// Package pointcloud loads 3D points from mesh and point files.
package pointcloud

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/openscad"
	"github.com/philipparndt/obbkit/pkg/stl"
)

var (
	// ErrUnsupportedFormat is returned for unknown file extensions
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrNoPoints is returned when a file parses but holds no point
	ErrNoPoints = errors.New("file contains no points")
	// ErrNotAMesh is returned by LoadModel for point formats
	ErrNotAMesh = errors.New("not a triangle mesh")
)

// Extensions lists the file types Load understands
var Extensions = []string{".stl", ".obj", ".xyz", ".txt", ".pts", ".json", ".scad"}

// Load reads the points stored in path, choosing the parser by extension.
// Mesh formats yield their distinct vertices in first-seen order.
func Load(ctx context.Context, path string) ([]geometry.Vector3, error) {
	_, points, err := LoadWithModel(ctx, path)
	return points, err
}

// LoadWithModel is Load that also returns the triangle mesh when path holds
// one. The model is nil for pure point formats.
func LoadWithModel(ctx context.Context, path string) (*stl.Model, []geometry.Vector3, error) {
	model, err := LoadModel(ctx, path)
	if err == nil {
		points, err := nonEmpty(path, model.Vertices())
		return model, points, err
	}
	if !errors.Is(err, ErrNotAMesh) {
		return nil, nil, err
	}
	points, err := loadPoints(path)
	return nil, points, err
}

func loadPoints(path string) ([]geometry.Vector3, error) {
	var read func(io.Reader) ([]geometry.Vector3, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		read = ReadOBJ
	case ".xyz", ".txt", ".pts":
		read = ReadXYZ
	case ".json":
		read = ReadJSON
	default:
		return nil, fmt.Errorf("%w: %s (expected one of %s)", ErrUnsupportedFormat, filepath.Ext(path), strings.Join(Extensions, ", "))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	points, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nonEmpty(path, points)
}

// LoadModel loads a triangle mesh from an STL file or an OpenSCAD source
// rendered to a temporary STL
func LoadModel(ctx context.Context, path string) (*stl.Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		model, err := stl.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse STL file: %w", err)
		}
		return model, nil

	case ".scad":
		tmp, err := os.CreateTemp("", "obbkit-*.stl")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary STL: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		renderer := openscad.NewRenderer(filepath.Dir(path))
		if err := renderer.RenderToSTL(ctx, filepath.Base(path), tmp.Name()); err != nil {
			return nil, fmt.Errorf("failed to render OpenSCAD file: %w", err)
		}
		model, err := stl.Parse(tmp.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse rendered STL: %w", err)
		}
		return model, nil
	}
	return nil, ErrNotAMesh
}

func nonEmpty(path string, points []geometry.Vector3) ([]geometry.Vector3, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPoints)
	}
	return points, nil
}

// ReadOBJ reads the vertex positions ("v x y z") of a Wavefront OBJ file
func ReadOBJ(r io.Reader) ([]geometry.Vector3, error) {
	var points []geometry.Vector3
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "v" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
		}
		p, err := parseTriple(fields[1:4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// ReadXYZ reads one point per line, coordinates separated by whitespace or
// commas. Blank lines and lines starting with '#' are skipped; extra columns
// such as colors are ignored.
func ReadXYZ(r io.Reader) ([]geometry.Vector3, error) {
	var points []geometry.Vector3
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least three coordinates", line)
		}
		p, err := parseTriple(fields[:3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// ReadJSON reads a JSON array whose elements are either [x, y, z] arrays or
// {"x": .., "y": .., "z": ..} objects
func ReadJSON(r io.Reader) ([]geometry.Vector3, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	points := make([]geometry.Vector3, 0, len(raw))
	for i, item := range raw {
		var triple []float64
		if err := json.Unmarshal(item, &triple); err == nil {
			if len(triple) != 3 {
				return nil, fmt.Errorf("point %d: expected 3 coordinates, got %d", i, len(triple))
			}
			points = append(points, geometry.NewVector3(triple[0], triple[1], triple[2]))
			continue
		}

		var obj struct {
			X, Y, Z *float64
		}
		if err := json.Unmarshal(item, &obj); err != nil || obj.X == nil || obj.Y == nil || obj.Z == nil {
			return nil, fmt.Errorf("point %d: expected [x, y, z] or {\"x\", \"y\", \"z\"}", i)
		}
		points = append(points, geometry.NewVector3(*obj.X, *obj.Y, *obj.Z))
	}
	return points, nil
}

func parseTriple(fields []string) (geometry.Vector3, error) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Vector3{}, fmt.Errorf("invalid coordinate %q", f)
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}
