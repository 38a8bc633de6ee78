package obb

import (
	"math"
	"sort"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"gonum.org/v1/gonum/mat"
)

// PCA returns the box aligned with the principal axes of the point
// covariance. It is defined for any non-empty input; coincident or
// collinear clouds yield zero extents along the degenerate axes.
func PCA(points []geometry.Vector3) Box {
	if len(points) == 0 {
		return Box{Rotation: geometry.Identity(), Method: MethodPCA}
	}

	centroid := geometry.Mean(points)
	r := principalAxes(covariance(points, centroid))
	return boxFromFrame(r, centroid, points, MethodPCA)
}

func covariance(points []geometry.Vector3, centroid geometry.Vector3) [3][3]float64 {
	var c [3][3]float64
	for _, p := range points {
		d := p.Sub(centroid)
		v := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				c[i][j] += v[i] * v[j]
			}
		}
	}
	n := float64(len(points))
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			c[i][j] /= n
			c[j][i] = c[i][j]
		}
	}
	return c
}

// principalAxes returns the eigenvectors of the covariance as rows, largest
// variance first, forced right-handed
func principalAxes(c [3][3]float64) geometry.Mat3 {
	var r geometry.Mat3
	if isDiagonal(c) {
		order := []int{0, 1, 2}
		sort.SliceStable(order, func(a, b int) bool {
			return c[order[a]][order[a]] > c[order[b]][order[b]]
		})
		id := geometry.Identity()
		for i, axis := range order {
			r[i] = id[axis]
		}
	} else {
		sym := mat.NewSymDense(3, []float64{
			c[0][0], c[0][1], c[0][2],
			c[1][0], c[1][1], c[1][2],
			c[2][0], c[2][1], c[2][2],
		})
		var eig mat.EigenSym
		if !eig.Factorize(sym, true) {
			panic("obb: symmetric eigendecomposition failed")
		}
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// Eigenvalues come back in ascending order, one eigenvector per column
		for i := 0; i < 3; i++ {
			col := 2 - i
			r[i] = geometry.NewVector3(vecs.At(0, col), vecs.At(1, col), vecs.At(2, col)).Normalize()
		}
	}

	r[0] = foldHemisphere(r[0], 0)
	r[1] = foldHemisphere(r[1], 0)
	r[2] = r[0].Cross(r[1]).Normalize()
	if !r.IsOrthonormal(1e-6) {
		panic("obb: principal axes are not orthonormal")
	}
	return r
}

func isDiagonal(c [3][3]float64) bool {
	off := math.Max(math.Abs(c[0][1]), math.Max(math.Abs(c[0][2]), math.Abs(c[1][2])))
	scale := math.Max(math.Abs(c[0][0]), math.Max(math.Abs(c[1][1]), math.Abs(c[2][2])))
	return off <= 1e-12*scale
}
