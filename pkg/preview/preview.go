// Package preview renders a headless still image of a model and its
// oriented bounding box.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/pkg/stl"
	"golang.org/x/image/draw"
)

// ErrUnsupportedFormat is returned for image formats other than png and webp
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Options controls the rendered image
type Options struct {
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	Supersample int     `toml:"supersample"`
	Pitch       float64 `toml:"pitch"` // camera elevation in radians
	Yaw         float64 `toml:"yaw"`   // camera azimuth in radians
	LineWidth   int     `toml:"line_width"`
	PointSize   int     `toml:"point_size"` // dot size in pixels for meshless input

	Background color.RGBA `toml:"-"`
	ModelColor color.RGBA `toml:"-"`
	PointColor color.RGBA `toml:"-"`
	BoxColor   color.RGBA `toml:"-"`
}

// DefaultOptions returns a 512x512 isometric-ish view
func DefaultOptions() Options {
	return Options{
		Width:       512,
		Height:      512,
		Supersample: 3,
		Pitch:       0.5,
		Yaw:         0.7,
		LineWidth:   2,
		PointSize:   2,
		Background:  color.RGBA{30, 30, 36, 255},
		ModelColor:  color.RGBA{170, 180, 200, 255},
		PointColor:  color.RGBA{110, 200, 255, 255},
		BoxColor:    color.RGBA{255, 140, 0, 255},
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Supersample <= 0 {
		o.Supersample = d.Supersample
	}
	if o.LineWidth <= 0 {
		o.LineWidth = d.LineWidth
	}
	if o.PointSize <= 0 {
		o.PointSize = d.PointSize
	}
	if o.Background == (color.RGBA{}) {
		o.Background = d.Background
	}
	if o.ModelColor == (color.RGBA{}) {
		o.ModelColor = d.ModelColor
	}
	if o.PointColor == (color.RGBA{}) {
		o.PointColor = d.PointColor
	}
	if o.BoxColor == (color.RGBA{}) {
		o.BoxColor = d.BoxColor
	}
	return o
}

// Render draws the model flat-shaded and the box edges on top. Input
// without a mesh has a nil model; its points are drawn as dots instead.
// Any of model, points and box may be empty. The scene is rendered at
// Supersample times the target size and scaled down.
func Render(model *stl.Model, points []geometry.Vector3, box *obb.Box, opts Options) *image.RGBA {
	opts = opts.WithDefaults()

	bbox := geometry.NewBoundingBox()
	if model != nil {
		bbox = model.BoundingBox()
		points = nil
	}
	for _, p := range points {
		if p.IsFinite() {
			bbox.Extend(p)
		}
	}
	var corners [8]geometry.Vector3
	if box != nil {
		corners = box.Corners()
		for _, c := range corners {
			bbox.Extend(c)
		}
	}
	if bbox.IsEmpty() {
		bbox.Extend(geometry.Vector3{})
	}

	camera := NewCamera(bbox)
	camera.Rotate(opts.Pitch, opts.Yaw)

	w, h := opts.Width*opts.Supersample, opts.Height*opts.Supersample
	fw, fh := float64(w), float64(h)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	zbuffer := make([]float64, w*h)
	for i := range zbuffer {
		zbuffer[i] = math.Inf(1)
	}

	if model != nil {
		view := camera.Forward()
		for _, t := range model.Triangles {
			n := t.CalculateNormal()
			// Two-sided headlight shading
			shade := 0.35 + 0.65*math.Abs(n.Dot(view))

			var sv [3]screenVertex
			for i, v := range t.Vertices() {
				x, y, z := camera.Project(v, fw, fh)
				sv[i] = screenVertex{x, y, z}
			}
			fillTriangle(img, zbuffer, sv[0], sv[1], sv[2], scale(opts.ModelColor, shade))
		}
	}

	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		x, y, z := camera.Project(p, fw, fh)
		drawPoint(img, zbuffer, screenVertex{x, y, z}, opts.PointSize*opts.Supersample, opts.PointColor)
	}

	if box != nil {
		for _, e := range boxEdges(box.Mesh()) {
			x1, y1, _ := camera.Project(corners[e[0]], fw, fh)
			x2, y2, _ := camera.Project(corners[e[1]], fw, fh)
			drawThickLine(img, x1, y1, x2, y2, opts.LineWidth*opts.Supersample, opts.BoxColor)
		}
	}

	if opts.Supersample == 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// boxEdges returns the 12 distinct corner pairs of the box mesh
func boxEdges(m obb.Mesh) [][2]int {
	seen := make(map[[2]int]bool, 12)
	edges := make([][2]int, 0, 12)
	for _, f := range m.Faces {
		for i := 0; i < 4; i++ {
			a, b := f[i], f[(i+1)%4]
			if a > b {
				a, b = b, a
			}
			if seen[[2]int{a, b}] {
				continue
			}
			seen[[2]int{a, b}] = true
			edges = append(edges, [2]int{a, b})
		}
	}
	return edges
}

func scale(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(math.Min(255, float64(c.R)*f)),
		G: uint8(math.Min(255, float64(c.G)*f)),
		B: uint8(math.Min(255, float64(c.B)*f)),
		A: c.A,
	}
}

// FormatFromPath returns the image format implied by the file extension
func FormatFromPath(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "png", "webp":
		return ext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Encode writes img as png or webp
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "webp":
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Save encodes img to path, choosing the format from the extension
func Save(path string, img image.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, img, format); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return f.Close()
}
