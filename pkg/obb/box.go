package obb

import (
	"fmt"
	"math"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// Method identifies which path produced a box
type Method int

const (
	MethodPCA Method = iota
	MethodExhaustive
	MethodDegenerate
)

var methodNames = [...]string{"pca", "exhaustive", "degenerate"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod parses the lower-case method name
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unknown method %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Box is an oriented bounding box. Points are mapped into the box frame by
// local = Rotation * (p - Origin); Min and Max are the extents in that frame.
type Box struct {
	Rotation geometry.Mat3
	Min      geometry.Vector3
	Max      geometry.Vector3
	Origin   geometry.Vector3
	Method   Method
	// Partial is set when the search was cancelled before it completed.
	Partial bool
	Stats   SearchStats
}

// boxFromFrame fits the extents of points in the frame (r, origin)
func boxFromFrame(r geometry.Mat3, origin geometry.Vector3, points []geometry.Vector3, method Method) Box {
	lo, hi := project(points, r, origin)
	return Box{
		Rotation: r,
		Min:      lo,
		Max:      hi,
		Origin:   origin,
		Method:   method,
	}
}

func project(points []geometry.Vector3, r geometry.Mat3, origin geometry.Vector3) (geometry.Vector3, geometry.Vector3) {
	bbox := geometry.NewBoundingBox()
	for _, p := range points {
		bbox.Extend(r.MulVec(p.Sub(origin)))
	}
	if bbox.IsEmpty() {
		return geometry.Vector3{}, geometry.Vector3{}
	}
	return bbox.Min, bbox.Max
}

// Corners returns the eight corners in world space. Corner i has local
// coordinates (x, y, z) with x = Max.X when i&4 is set, y = Max.Y when i&2 is
// set and z = Max.Z when i&1 is set, so x varies slowest.
func (b Box) Corners() [8]geometry.Vector3 {
	var corners [8]geometry.Vector3
	for i := range corners {
		local := b.Min
		if i&4 != 0 {
			local.X = b.Max.X
		}
		if i&2 != 0 {
			local.Y = b.Max.Y
		}
		if i&1 != 0 {
			local.Z = b.Max.Z
		}
		corners[i] = b.World(local)
	}
	return corners
}

// Local maps a world point into the box frame
func (b Box) Local(p geometry.Vector3) geometry.Vector3 {
	return b.Rotation.MulVec(p.Sub(b.Origin))
}

// World maps a box-frame point back to world space
func (b Box) World(local geometry.Vector3) geometry.Vector3 {
	return b.Rotation.TransposeMulVec(local).Add(b.Origin)
}

// Extents returns the edge lengths along the three box axes
func (b Box) Extents() geometry.Vector3 {
	return b.Max.Sub(b.Min)
}

// Volume returns the product of the extents
func (b Box) Volume() float64 {
	e := b.Extents()
	return e.X * e.Y * e.Z
}

// Center returns the world-space box center
func (b Box) Center() geometry.Vector3 {
	return b.World(b.Min.Add(b.Max).Mul(0.5))
}

// Axis returns the i-th box axis in world space
func (b Box) Axis(i int) geometry.Vector3 {
	return b.Rotation.Row(i)
}

// Contains reports whether p lies inside the box or within tol of its surface
func (b Box) Contains(p geometry.Vector3, tol float64) bool {
	l := b.Local(p)
	for i := 0; i < 3; i++ {
		c := l.Component(i)
		if c < b.Min.Component(i)-tol || c > b.Max.Component(i)+tol {
			return false
		}
	}
	return true
}

// IsFinite reports whether the box has finite extents and origin
func (b Box) IsFinite() bool {
	return b.Min.IsFinite() && b.Max.IsFinite() && b.Origin.IsFinite() && !math.IsNaN(b.Volume())
}

// Mesh builds the closed hexahedral mesh of the box
func (b Box) Mesh() Mesh {
	return BuildMesh(b.Corners())
}

// degenerateBox is the fixed-size axis-aligned box around center
func degenerateBox(center geometry.Vector3, halfExtent float64) Box {
	h := geometry.NewVector3(halfExtent, halfExtent, halfExtent)
	return Box{
		Rotation: geometry.Identity(),
		Min:      h.Neg(),
		Max:      h,
		Origin:   center,
		Method:   MethodDegenerate,
	}
}
