package obb

import (
	"math"
	"sort"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// foldHemisphere flips v so that its first component larger than eps in
// magnitude is positive, collapsing v and -v onto one direction
func foldHemisphere(v geometry.Vector3, eps float64) geometry.Vector3 {
	for i := 0; i < 3; i++ {
		c := v.Component(i)
		if math.Abs(c) > eps {
			if c < 0 {
				return v.Neg()
			}
			return v
		}
	}
	return v
}

// uniqueNormals folds every usable normal into the canonical hemisphere,
// orders them lexicographically and drops directions within tol of one
// already kept. Zero-length and non-finite normals are skipped.
func uniqueNormals(normals []geometry.Vector3, tol float64) []geometry.Vector3 {
	folded := make([]geometry.Vector3, 0, len(normals))
	for _, n := range normals {
		if !n.IsFinite() {
			continue
		}
		l := n.Length()
		if l < 1e-12 {
			continue
		}
		folded = append(folded, foldHemisphere(n.Mul(1/l), tol))
	}

	sort.SliceStable(folded, func(i, j int) bool {
		a, b := folded[i], folded[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	unique := make([]geometry.Vector3, 0, len(folded))
	for _, n := range folded {
		duplicate := false
		for _, u := range unique {
			if n.Distance(u) <= tol {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, n)
		}
	}
	return unique
}
