package stl

import (
	"github.com/philipparndt/obbkit/pkg/geometry"
)

// Model represents a complete STL model
type Model struct {
	Name      string
	Triangles []geometry.Triangle
}

// NewModel creates a new STL model
func NewModel(name string) *Model {
	return &Model{
		Name:      name,
		Triangles: make([]geometry.Triangle, 0),
	}
}

// AddTriangle adds a triangle to the model
func (m *Model) AddTriangle(triangle geometry.Triangle) {
	m.Triangles = append(m.Triangles, triangle)
}

// TriangleCount returns the number of triangles in the model
func (m *Model) TriangleCount() int {
	return len(m.Triangles)
}

// Vertices returns the distinct triangle corners in the order they first appear
func (m *Model) Vertices() []geometry.Vector3 {
	seen := make(map[geometry.Vector3]struct{}, len(m.Triangles))
	vertices := make([]geometry.Vector3, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		for _, v := range t.Vertices() {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			vertices = append(vertices, v)
		}
	}
	return vertices
}

// BoundingBox calculates the axis-aligned bounding box of the entire model
func (m *Model) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, triangle := range m.Triangles {
		bbox.Extend(triangle.V1)
		bbox.Extend(triangle.V2)
		bbox.Extend(triangle.V3)
	}
	return bbox
}

// SurfaceArea calculates the total surface area of the model
func (m *Model) SurfaceArea() float64 {
	totalArea := 0.0
	for _, triangle := range m.Triangles {
		totalArea += triangle.Area()
	}
	return totalArea
}
