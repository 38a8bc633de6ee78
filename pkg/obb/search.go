package obb

import (
	"context"
	"math"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// SearchStats counts what happened during the triplet search
type SearchStats struct {
	UniqueNormals    int `json:"unique_normals" yaml:"unique_normals"`
	Evaluated        int `json:"evaluated" yaml:"evaluated"`
	RejectedParallel int `json:"rejected_parallel" yaml:"rejected_parallel"`
	RejectedCoplanar int `json:"rejected_coplanar" yaml:"rejected_coplanar"`
	RejectedBasis    int `json:"rejected_basis" yaml:"rejected_basis"`
	RejectedExtent   int `json:"rejected_extent" yaml:"rejected_extent"`
	RejectedOutlier  int `json:"rejected_outlier" yaml:"rejected_outlier"`
}

type candidate struct {
	rotation geometry.Mat3
	min, max geometry.Vector3
	volume   float64
}

type searchResult struct {
	best    candidate
	found   bool
	partial bool
	stats   SearchStats
}

// search enumerates bases built from triples of distinct normals and keeps
// the smallest box. The basis only depends on the first two normals of a
// triple, the third one merely has to span 3D with them, so each pair is
// evaluated at most once. Pairs are visited in normal order and a candidate
// only replaces the best one when strictly smaller, so ties go to the first
// pair found.
func search(ctx context.Context, cfg Config, points []geometry.Vector3, origin geometry.Vector3, normals []geometry.Vector3, refVolume float64) searchResult {
	var res searchResult
	res.stats.UniqueNormals = len(normals)

	for i := 0; i < len(normals); i++ {
		for j := i + 1; j < len(normals); j++ {
			if ctx.Err() != nil {
				res.partial = true
				return res
			}

			n1, n2 := normals[i], normals[j]
			// Written as negations so that NaN fails the test
			if !(math.Abs(n1.Dot(n2)) <= cfg.ParallelDot) {
				res.stats.RejectedParallel++
				continue
			}

			cross := n1.Cross(n2)
			for k := j + 1; k < len(normals); k++ {
				if !(math.Abs(cross.Dot(normals[k])) >= cfg.CoplanarEpsilon) {
					res.stats.RejectedCoplanar++
					continue
				}

				r, ok := orthonormalBasis(n1, n2, cfg.OrthoEpsilon)
				if !ok {
					res.stats.RejectedBasis++
					break
				}
				res.evaluate(cfg, points, origin, r, refVolume)
				break
			}
		}
	}
	return res
}

func (res *searchResult) evaluate(cfg Config, points []geometry.Vector3, origin geometry.Vector3, r geometry.Mat3, refVolume float64) {
	res.stats.Evaluated++

	lo, hi := project(points, r, origin)
	e := hi.Sub(lo)
	volume := e.X * e.Y * e.Z
	if !(e.X > 0 && e.Y > 0 && e.Z > 0) || math.IsInf(volume, 0) || math.IsNaN(volume) {
		res.stats.RejectedExtent++
		return
	}
	if refVolume > 0 && volume > refVolume*cfg.OutlierVolumeFactor {
		res.stats.RejectedOutlier++
		return
	}

	if !res.found || volume < res.best.volume {
		res.best = candidate{rotation: r, min: lo, max: hi, volume: volume}
		res.found = true
	}
}

// orthonormalBasis runs Gram-Schmidt on (n1, n2) and completes the frame
// with their cross product. The result is right-handed.
func orthonormalBasis(n1, n2 geometry.Vector3, eps float64) (geometry.Mat3, bool) {
	u1 := n1.Normalize()
	v2 := n2.Sub(u1.Mul(n2.Dot(u1)))
	if !(v2.Length() >= eps) {
		return geometry.Mat3{}, false
	}
	u2 := v2.Normalize()

	c := u1.Cross(u2)
	if !(c.Length() >= eps) {
		return geometry.Mat3{}, false
	}
	r := geometry.NewMat3FromRows(u1, u2, c.Normalize())
	if r.Det() < 0 {
		r[2] = r[2].Neg()
	}
	return r, true
}
