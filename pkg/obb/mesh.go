package obb

import (
	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/stl"
)

// Face names in the order of Mesh.Faces
var FaceNames = [6]string{"bottom", "top", "front", "back", "left", "right"}

// boxFaces indexes corners in Box.Corners order
var boxFaces = [6][4]int{
	{0, 2, 3, 1}, // bottom
	{4, 5, 7, 6}, // top
	{0, 1, 5, 4}, // front
	{2, 6, 7, 3}, // back
	{0, 4, 6, 2}, // left
	{1, 3, 7, 5}, // right
}

// Mesh is a closed hexahedron made of six quads
type Mesh struct {
	Vertices [8]geometry.Vector3
	Faces    [6][4]int
	Normals  [6]geometry.Vector3
}

// BuildMesh builds the box surface from eight corners ordered as returned by
// Box.Corners. Every quad is wound so that its normal points away from the
// box center; quads of a flat box keep the table winding.
func BuildMesh(corners [8]geometry.Vector3) Mesh {
	m := Mesh{Vertices: corners, Faces: boxFaces}
	center := geometry.Mean(corners[:])

	for i, f := range m.Faces {
		n := quadNormal(corners, f)
		quadCenter := geometry.Mean([]geometry.Vector3{corners[f[0]], corners[f[1]], corners[f[2]], corners[f[3]]})
		if n.Dot(quadCenter.Sub(center)) < 0 {
			m.Faces[i] = [4]int{f[0], f[3], f[2], f[1]}
			n = n.Neg()
		}
		m.Normals[i] = n
	}
	return m
}

// quadNormal uses Newell's method, which tolerates slightly non-planar quads
func quadNormal(v [8]geometry.Vector3, f [4]int) geometry.Vector3 {
	var n geometry.Vector3
	for i := 0; i < 4; i++ {
		a := v[f[i]]
		b := v[f[(i+1)%4]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n.Normalize()
}

// Triangles splits every quad into two triangles with the quad winding
func (m Mesh) Triangles() []geometry.Triangle {
	tris := make([]geometry.Triangle, 0, 12)
	for i, f := range m.Faces {
		a, b, c, d := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]], m.Vertices[f[3]]
		tris = append(tris,
			geometry.NewTriangle(m.Normals[i], a, b, c),
			geometry.NewTriangle(m.Normals[i], a, c, d),
		)
	}
	return tris
}

// Model converts the mesh into an STL model
func (m Mesh) Model(name string) *stl.Model {
	model := stl.NewModel(name)
	for _, t := range m.Triangles() {
		model.AddTriangle(t)
	}
	return model
}
