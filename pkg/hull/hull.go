// Package hull reduces a point cloud to its convex hull.
//
// The hull is built incrementally: an initial tetrahedron is grown by
// inserting the remaining points in input order, replacing every face a new
// point can see with a fan of faces around the horizon. Every point not yet
// inserted is kept in the outside set of one face it can see, so a point
// only meets the faces near it and interior points are dropped as soon as
// they are enclosed. Insertion order is the input order, so the result is
// fully deterministic.
package hull

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// ErrTooManyFaces is returned by ComputeContext when the hull grows past
// the requested face limit
var ErrTooManyFaces = errors.New("hull: too many faces")

// cancelCheckInterval is how many insertions pass between context checks
const cancelCheckInterval = 256

// Face is a triangular hull face. A, B and C index Hull.Vertices and are
// wound counter-clockwise when seen from outside the hull.
type Face struct {
	A, B, C int
	Normal  geometry.Vector3
}

// Hull is the convex hull of a point cloud
type Hull struct {
	Vertices []geometry.Vector3
	Faces    []Face
	// Dim is the affine dimension of the input: 0 when all points coincide,
	// 1 when they are collinear, 2 when coplanar and 3 otherwise. Faces are
	// only produced for Dim == 3; below that Vertices holds the distinct
	// input points.
	Dim int
}

type face struct {
	v [3]int
	// adj[e] is the face across the edge v[e] -> v[e+1]
	adj     [3]int
	normal  geometry.Vector3
	offset  float64
	outside []int
	visited int
	alive   bool
}

func newFace(pts []geometry.Vector3, a, b, c int) face {
	n := pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a])).Normalize()
	return face{
		v:      [3]int{a, b, c},
		adj:    [3]int{-1, -1, -1},
		normal: n,
		offset: n.Dot(pts[a]),
		alive:  true,
	}
}

func (f face) distance(p geometry.Vector3) float64 {
	return f.normal.Dot(p) - f.offset
}

// Compute returns the convex hull of points. eps is a relative tolerance:
// points closer than eps*max(1, extent) to a face plane are treated as lying
// on it.
func Compute(points []geometry.Vector3, eps float64) Hull {
	h, _ := ComputeContext(context.Background(), points, eps, 0)
	return h
}

// ComputeContext is Compute with cancellation and a size limit. ctx is
// checked every few hundred insertions. When maxFaces is positive and the
// hull under construction has more faces than that, building stops with
// ErrTooManyFaces. The returned Hull is only valid when err is nil.
func ComputeContext(ctx context.Context, points []geometry.Vector3, eps float64, maxFaces int) (Hull, error) {
	pts := distinct(points)
	if len(pts) == 0 {
		return Hull{}, nil
	}

	size := geometry.BoundingBoxOf(pts).Size()
	tol := eps * math.Max(1, math.Max(size.X, math.Max(size.Y, size.Z)))

	i0, i1, i2, i3, dim := initialSimplex(pts, tol)
	if dim < 3 {
		return Hull{Vertices: pts, Dim: dim}, nil
	}

	hb := newBuilder(pts, tol, [4]int{i0, i1, i2, i3})
	for k := range pts {
		if k%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Hull{}, err
			}
		}
		if hb.conflict[k] < 0 {
			continue
		}
		hb.insert(k)
		if maxFaces > 0 && hb.live > maxFaces {
			return Hull{}, fmt.Errorf("%w: more than %d after %d of %d points",
				ErrTooManyFaces, maxFaces, k+1, len(pts))
		}
	}

	return assemble(pts, hb.faces), nil
}

// distinct drops exact duplicates, keeping the first occurrence
func distinct(points []geometry.Vector3) []geometry.Vector3 {
	seen := make(map[geometry.Vector3]struct{}, len(points))
	out := make([]geometry.Vector3, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// initialSimplex picks four affinely independent points, or reports the
// dimension at which the cloud degenerates.
func initialSimplex(pts []geometry.Vector3, tol float64) (int, int, int, int, int) {
	i0 := 0
	for i, p := range pts {
		if p.X < pts[i0].X {
			i0 = i
		}
	}

	i1, best := farthest(pts, func(p geometry.Vector3) float64 {
		return p.Distance(pts[i0])
	})
	if best <= tol {
		return i0, 0, 0, 0, 0
	}

	dir := pts[i1].Sub(pts[i0]).Normalize()
	i2, best := farthest(pts, func(p geometry.Vector3) float64 {
		return p.Sub(pts[i0]).Cross(dir).Length()
	})
	if best <= tol {
		return i0, i1, 0, 0, 1
	}

	normal := pts[i1].Sub(pts[i0]).Cross(pts[i2].Sub(pts[i0])).Normalize()
	i3, best := farthest(pts, func(p geometry.Vector3) float64 {
		return math.Abs(normal.Dot(p.Sub(pts[i0])))
	})
	if best <= tol {
		return i0, i1, i2, 0, 2
	}

	return i0, i1, i2, i3, 3
}

func farthest(pts []geometry.Vector3, dist func(geometry.Vector3) float64) (int, float64) {
	idx, best := 0, -1.0
	for i, p := range pts {
		if d := dist(p); d > best {
			idx, best = i, d
		}
	}
	return idx, best
}

// builder holds the hull under construction
type builder struct {
	pts   []geometry.Vector3
	tol   float64
	faces []face
	live  int
	// conflict is the index of the face whose outside set holds a point,
	// or -1 when the point is on the hull or enclosed by it
	conflict []int
	pass     int
}

func newBuilder(pts []geometry.Vector3, tol float64, simplex [4]int) *builder {
	hb := &builder{
		pts:      pts,
		tol:      tol,
		faces:    tetrahedron(pts, simplex),
		conflict: make([]int, len(pts)),
	}
	hb.live = len(hb.faces)

	initial := []int{0, 1, 2, 3}
	for k := range pts {
		hb.conflict[k] = -1
		if k == simplex[0] || k == simplex[1] || k == simplex[2] || k == simplex[3] {
			continue
		}
		hb.assign(k, initial)
	}
	return hb
}

func tetrahedron(pts []geometry.Vector3, v [4]int) []face {
	combos := [4][4]int{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	faces := make([]face, 0, 4)
	for _, c := range combos {
		a, b, cc, opposite := v[c[0]], v[c[1]], v[c[2]], v[c[3]]
		f := newFace(pts, a, b, cc)
		if f.distance(pts[opposite]) > 0 {
			f = newFace(pts, a, cc, b)
		}
		faces = append(faces, f)
	}

	edges := make(map[[2]int]int, 12)
	for i, f := range faces {
		for e := 0; e < 3; e++ {
			edges[[2]int{f.v[e], f.v[(e+1)%3]}] = i
		}
	}
	for i := range faces {
		for e := 0; e < 3; e++ {
			faces[i].adj[e] = edges[[2]int{faces[i].v[(e+1)%3], faces[i].v[e]}]
		}
	}
	return faces
}

// assign puts point k into the outside set of the first candidate face it
// can see
func (hb *builder) assign(k int, candidates []int) {
	p := hb.pts[k]
	for _, i := range candidates {
		if hb.faces[i].distance(p) > hb.tol {
			hb.conflict[k] = i
			hb.faces[i].outside = append(hb.faces[i].outside, k)
			return
		}
	}
	hb.conflict[k] = -1
}

type horizonEdge struct {
	a, b     int
	neighbor int
}

// insert adds point k, which lies outside its conflict face
func (hb *builder) insert(k int) {
	p := hb.pts[k]
	hb.pass++

	// The faces visible from p form a connected region around the conflict face
	start := hb.conflict[k]
	hb.faces[start].visited = hb.pass
	stack := []int{start}
	var visible []int
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visible = append(visible, i)
		for _, n := range hb.faces[i].adj {
			if hb.faces[n].visited == hb.pass {
				continue
			}
			if hb.faces[n].distance(p) > hb.tol {
				hb.faces[n].visited = hb.pass
				stack = append(stack, n)
			}
		}
	}

	// An edge of the visible region whose neighbor is not visible is on the horizon
	var horizon []horizonEdge
	for _, i := range visible {
		f := hb.faces[i]
		for e := 0; e < 3; e++ {
			if hb.faces[f.adj[e]].visited != hb.pass {
				horizon = append(horizon, horizonEdge{f.v[e], f.v[(e+1)%3], f.adj[e]})
			}
		}
	}

	created := make([]int, 0, len(horizon))
	byStart := make(map[int]int, len(horizon))
	byEnd := make(map[int]int, len(horizon))
	for _, h := range horizon {
		idx := len(hb.faces)
		nf := newFace(hb.pts, h.a, h.b, k)
		nf.adj[0] = h.neighbor
		hb.faces = append(hb.faces, nf)
		hb.relink(h.neighbor, h.b, h.a, idx)
		byStart[h.a] = idx
		byEnd[h.b] = idx
		created = append(created, idx)
	}
	// Face (a, b, k) meets the fan at edges b -> k and k -> a
	for _, idx := range created {
		v := hb.faces[idx].v
		hb.faces[idx].adj[1] = byStart[v[1]]
		hb.faces[idx].adj[2] = byEnd[v[0]]
	}

	for _, i := range visible {
		hb.faces[i].alive = false
		for _, q := range hb.faces[i].outside {
			if q != k {
				hb.assign(q, created)
			}
		}
		hb.faces[i].outside = nil
	}
	hb.conflict[k] = -1
	hb.live += len(created) - len(visible)
}

// relink points the edge a -> b of face i at face to
func (hb *builder) relink(i, a, b, to int) {
	v := hb.faces[i].v
	for e := 0; e < 3; e++ {
		if v[e] == a && v[(e+1)%3] == b {
			hb.faces[i].adj[e] = to
			return
		}
	}
}

// assemble compacts the alive faces and the vertices they reference
func assemble(pts []geometry.Vector3, faces []face) Hull {
	used := make([]bool, len(pts))
	for _, f := range faces {
		if !f.alive {
			continue
		}
		for _, v := range f.v {
			used[v] = true
		}
	}

	remap := make([]int, len(pts))
	h := Hull{Dim: 3}
	for i, u := range used {
		if u {
			remap[i] = len(h.Vertices)
			h.Vertices = append(h.Vertices, pts[i])
		}
	}

	for _, f := range faces {
		if !f.alive {
			continue
		}
		h.Faces = append(h.Faces, Face{
			A:      remap[f.v[0]],
			B:      remap[f.v[1]],
			C:      remap[f.v[2]],
			Normal: f.normal,
		})
	}
	return h
}

// Centroid returns the mean of the hull vertices
func (h Hull) Centroid() geometry.Vector3 {
	return geometry.Mean(h.Vertices)
}

// Normals returns the outward unit normal of every face, in face order
func (h Hull) Normals() []geometry.Vector3 {
	normals := make([]geometry.Vector3, len(h.Faces))
	for i, f := range h.Faces {
		normals[i] = f.Normal
	}
	return normals
}

// Contains reports whether p lies inside the hull or within tol of its surface.
// Only meaningful for Dim == 3.
func (h Hull) Contains(p geometry.Vector3, tol float64) bool {
	for _, f := range h.Faces {
		if f.Normal.Dot(p.Sub(h.Vertices[f.A])) > tol {
			return false
		}
	}
	return true
}
