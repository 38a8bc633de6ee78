// Package report renders oriented box results as text, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/obb"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned by Write for formats other than text, json and yaml
var ErrUnknownFormat = errors.New("unknown report format")

// Vec is a vector serialized as a flow sequence [x, y, z]
type Vec [3]float64

func vec(v geometry.Vector3) Vec {
	return Vec{v.X, v.Y, v.Z}
}

// MarshalYAML keeps vectors on one line
func (v Vec) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, c := range v {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(c, 'g', -1, 64),
		})
	}
	return node, nil
}

// Report describes the oriented box of one input
type Report struct {
	File       string          `json:"file" yaml:"file"`
	Points     int             `json:"points" yaml:"points"`
	Method     obb.Method      `json:"method" yaml:"method"`
	Volume     float64         `json:"volume" yaml:"volume"`
	AABBVolume float64         `json:"aabb_volume" yaml:"aabb_volume"`
	Center     Vec             `json:"center" yaml:"center"`
	Extents    Vec             `json:"extents" yaml:"extents"`
	Axes       [3]Vec          `json:"axes" yaml:"axes"`
	Corners    [8]Vec          `json:"corners" yaml:"corners"`
	Partial    bool            `json:"partial,omitempty" yaml:"partial,omitempty"`
	Stats      obb.SearchStats `json:"stats" yaml:"stats"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromBox builds a report for box, computed from pointCount points whose
// axis-aligned bounds are aabb.
func FromBox(name string, pointCount int, box obb.Box, aabb geometry.BoundingBox) Report {
	r := Report{
		File:       name,
		Points:     pointCount,
		Method:     box.Method,
		Volume:     box.Volume(),
		AABBVolume: aabb.Volume(),
		Center:     vec(box.Center()),
		Extents:    vec(box.Extents()),
		Partial:    box.Partial,
		Stats:      box.Stats,
	}
	for i := 0; i < 3; i++ {
		r.Axes[i] = vec(box.Axis(i))
	}
	for i, c := range box.Corners() {
		r.Corners[i] = vec(c)
	}
	return r
}

// FromError builds a report for an input that could not be processed
func FromError(name string, err error) Report {
	return Report{File: name, Error: err.Error()}
}

// Write renders reports in the given format. JSON and YAML write a single
// object for one report and a list otherwise.
func Write(w io.Writer, format string, reports ...Report) error {
	var doc interface{} = reports
	if len(reports) == 1 {
		doc = reports[0]
	}

	switch format {
	case FormatText, "":
		return writeText(w, reports)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeText(w io.Writer, reports []Report) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeOne(w, r); err != nil {
			return err
		}
	}
	return nil
}

func writeOne(w io.Writer, r Report) error {
	p := &printer{w: w}

	p.printf("File: %s\n", r.File)
	if r.Error != "" {
		p.printf("  Error: %s\n", r.Error)
		return p.err
	}

	p.printf("  Points: %d\n", r.Points)
	p.printf("  Method: %s", r.Method)
	if r.Partial {
		p.printf(" (partial, search cancelled)")
	}
	p.printf("\n")
	p.printf("  Volume: %.6f cubic units\n", r.Volume)
	if r.AABBVolume > 0 {
		p.printf("  AABB Volume: %.6f cubic units (%.1f%%)\n", r.AABBVolume, 100*r.Volume/r.AABBVolume)
	}
	p.printf("  Center: %s\n", r.Center)
	p.printf("  Extents: %s\n", r.Extents)
	for i, a := range r.Axes {
		p.printf("  Axis %d: %s\n", i, a)
	}
	p.printf("  Corners:\n")
	for i, c := range r.Corners {
		p.printf("    %d: %s\n", i, c)
	}
	if r.Method == obb.MethodExhaustive {
		s := r.Stats
		p.printf("  Search: %d unique normals, %d bases evaluated\n", s.UniqueNormals, s.Evaluated)
		p.printf("  Rejected: parallel %d, coplanar %d, basis %d, extent %d, outlier %d\n",
			s.RejectedParallel, s.RejectedCoplanar, s.RejectedBasis, s.RejectedExtent, s.RejectedOutlier)
	}
	return p.err
}

// String formats the vector with fixed precision
func (v Vec) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v[0], v[1], v[2])
}

// printer remembers the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
