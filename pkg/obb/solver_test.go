package obb

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/hull"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitCube() []geometry.Vector3 {
	var pts []geometry.Vector3
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				pts = append(pts, geometry.NewVector3(x, y, z))
			}
		}
	}
	return pts
}

func transform(points []geometry.Vector3, r geometry.Mat3, offset geometry.Vector3) []geometry.Vector3 {
	out := make([]geometry.Vector3, len(points))
	for i, p := range points {
		out[i] = r.MulVec(p).Add(offset)
	}
	return out
}

// randomCloud returns an anisotropic, rotated gaussian cloud
func randomCloud(n int, seed int64) []geometry.Vector3 {
	rng := rand.New(rand.NewSource(seed))
	r := geometry.RotationAxisAngle(geometry.NewVector3(rng.Float64(), rng.Float64(), rng.Float64()), rng.Float64()*math.Pi)
	pts := make([]geometry.Vector3, n)
	for i := range pts {
		p := geometry.NewVector3(rng.NormFloat64()*4, rng.NormFloat64()*2, rng.NormFloat64()*0.5)
		pts[i] = r.MulVec(p).Add(geometry.NewVector3(10, -3, 7))
	}
	return pts
}

func assertContainsAll(t *testing.T, box Box, points []geometry.Vector3, tol float64) {
	t.Helper()
	for _, p := range points {
		if !box.Contains(p, tol) {
			t.Errorf("point %v outside box (local %v, min %v, max %v)", p, box.Local(p), box.Min, box.Max)
		}
	}
}

func TestSolveCube(t *testing.T) {
	pts := unitCube()

	pca := PCA(pts)
	assert.InDelta(t, 1.0, pca.Volume(), 1e-9)

	box, err := new(Solver).Solve(pts)
	require.NoError(t, err)
	assert.Equal(t, MethodExhaustive, box.Method)
	assert.InDelta(t, 1.0, box.Volume(), 1e-9)
	assert.Equal(t, 3, box.Stats.UniqueNormals)

	// The recovered axes are the world axes up to sign and order
	for i := 0; i < 3; i++ {
		a := box.Axis(i)
		assert.InDelta(t, 1.0, math.Abs(a.X)+math.Abs(a.Y)+math.Abs(a.Z), 1e-12, "axis %d = %v", i, a)
	}
	assertContainsAll(t, box, pts, 1e-9)
}

func TestSolveRotatedCube(t *testing.T) {
	r := geometry.RotationAxisAngle(geometry.NewVector3(1, 2, 3), 0.7)
	pts := transform(unitCube(), r, geometry.NewVector3(5, -2, 1))

	box, err := new(Solver).Solve(pts)
	require.NoError(t, err)
	assert.Equal(t, MethodExhaustive, box.Method)
	assert.InDelta(t, 1.0, box.Volume(), 1e-9)

	// An axis-aligned box around a rotated cube is strictly larger
	aabb := geometry.BoundingBoxOf(pts)
	assert.Greater(t, aabb.Volume(), 1.1)
	assert.LessOrEqual(t, box.Volume(), PCA(pts).Volume()+1e-12)

	center := geometry.Mean(pts)
	assert.InDelta(t, 0, box.Center().Distance(center), 1e-9)
	assertContainsAll(t, box, pts, 1e-9)
}

func TestSolveProperties(t *testing.T) {
	clouds := map[string][]geometry.Vector3{
		"gaussian-50":  randomCloud(50, 1),
		"gaussian-300": randomCloud(300, 2),
		"box-and-noise": append(
			transform(unitCube(), geometry.RotationAxisAngle(geometry.NewVector3(0, 1, 1), 1.1), geometry.Vector3{}),
			randomCloud(20, 3)...,
		),
	}

	for name, pts := range clouds {
		t.Run(name, func(t *testing.T) {
			solver := new(Solver)
			box, err := solver.Solve(pts)
			require.NoError(t, err)
			require.True(t, box.IsFinite())
			assert.True(t, box.Rotation.IsOrthonormal(1e-9))
			assert.InDelta(t, 1.0, box.Rotation.Det(), 1e-9)

			scale := geometry.BoundingBoxOf(pts).Diagonal()
			assertContainsAll(t, box, pts, 1e-9*scale)

			// Corners projected back reproduce the extents
			corners := box.Corners()
			lo, hi := project(corners[:], box.Rotation, box.Origin)
			assert.InDelta(t, 0, lo.Distance(box.Min), 1e-9*scale)
			assert.InDelta(t, 0, hi.Distance(box.Max), 1e-9*scale)

			pca := PCA(pts)
			assertContainsAll(t, pca, pts, 1e-9*scale)
			assert.LessOrEqual(t, box.Volume(), pca.Volume()*(1+1e-12))

			again, err := solver.Solve(pts)
			require.NoError(t, err)
			assert.Equal(t, box.Corners(), again.Corners())
		})
	}
}

func TestSolveDegenerate(t *testing.T) {
	p := geometry.NewVector3(3, -1, 2)

	t.Run("single point", func(t *testing.T) {
		box, err := new(Solver).Solve([]geometry.Vector3{p})
		require.NoError(t, err)
		assert.Equal(t, MethodDegenerate, box.Method)
		assert.True(t, box.IsFinite())
		assert.Greater(t, box.Volume(), 0.0)
		assert.Less(t, box.Volume(), 1e-9)
		assert.InDelta(t, 0, box.Center().Distance(p), 1e-12)
		assert.True(t, box.Contains(p, 0))
	})

	t.Run("two identical points", func(t *testing.T) {
		box, err := new(Solver).Solve([]geometry.Vector3{p, p})
		require.NoError(t, err)
		assert.Equal(t, MethodDegenerate, box.Method)
		assert.InDelta(t, 0, box.Center().Distance(p), 1e-12)
	})

	t.Run("segment", func(t *testing.T) {
		q := geometry.NewVector3(5, 1, 3)
		box, err := new(Solver).Solve([]geometry.Vector3{p, q})
		require.NoError(t, err)
		assert.Equal(t, MethodPCA, box.Method)
		assert.True(t, box.IsFinite())
		assert.InDelta(t, 0, box.Volume(), 1e-12)

		dir := q.Sub(p).Normalize()
		assert.InDelta(t, 1.0, math.Abs(box.Axis(0).Dot(dir)), 1e-9)
		assert.InDelta(t, q.Distance(p), box.Extents().X, 1e-9)
		assertContainsAll(t, box, []geometry.Vector3{p, q}, 1e-9)
	})

	t.Run("planar", func(t *testing.T) {
		pts := []geometry.Vector3{
			geometry.NewVector3(0, 0, 1),
			geometry.NewVector3(2, 0, 1),
			geometry.NewVector3(2, 1, 1),
			geometry.NewVector3(0, 1, 1),
		}
		box, err := new(Solver).Solve(pts)
		require.NoError(t, err)
		assert.Equal(t, MethodPCA, box.Method)
		assert.InDelta(t, 0, box.Volume(), 1e-12)
		assertContainsAll(t, box, pts, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := new(Solver).Solve(nil)
		assert.ErrorIs(t, err, ErrEmptyPointCloud)
	})

	t.Run("only non-finite", func(t *testing.T) {
		_, err := new(Solver).Solve([]geometry.Vector3{{X: math.NaN()}})
		assert.ErrorIs(t, err, ErrEmptyPointCloud)
	})
}

func TestSolveSkipsNonFinitePoints(t *testing.T) {
	pts := append(unitCube(), geometry.NewVector3(math.Inf(1), 0, 0))
	box, err := new(Solver).Solve(pts)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, box.Volume(), 1e-9)
}

func TestSearchSkipsMalformedNormals(t *testing.T) {
	cfg := DefaultConfig()
	r := geometry.RotationAxisAngle(geometry.NewVector3(3, -1, 2), 0.4)
	pts := transform(unitCube(), r, geometry.Vector3{})
	h := hull.Compute(pts, cfg.HullEpsilon)

	clean := uniqueNormals(h.Normals(), cfg.NormalMergeTolerance)
	require.Len(t, clean, 3)

	// The unique set never admits zero or non-finite directions
	poisoned := append(h.Normals(), geometry.Vector3{}, geometry.NewVector3(math.NaN(), 1, 0))
	assert.Equal(t, clean, uniqueNormals(poisoned, cfg.NormalMergeTolerance))

	// Even when injected straight into the candidate pool they are skipped
	ref := PCA(pts).Volume()
	want := search(context.Background(), cfg, h.Vertices, h.Centroid(), clean, ref)
	pool := append([]geometry.Vector3{{}}, clean...)
	pool = append(pool, geometry.NewVector3(math.NaN(), 0, 0))
	got := search(context.Background(), cfg, h.Vertices, h.Centroid(), pool, ref)

	require.True(t, got.found)
	assert.Equal(t, want.best, got.best)
	assert.InDelta(t, 1.0, got.best.volume, 1e-9)
	assert.Positive(t, got.stats.RejectedCoplanar)
}

func TestSolveOutlierCapFallsBackToPCA(t *testing.T) {
	r := geometry.RotationAxisAngle(geometry.NewVector3(1, 1, 0), 0.5)
	pts := transform(unitCube(), r, geometry.Vector3{})

	solver := NewSolver(Config{OutlierVolumeFactor: 1e-9})
	box, err := solver.Solve(pts)
	require.NoError(t, err)
	assert.Equal(t, MethodPCA, box.Method)
	assert.Positive(t, box.Stats.RejectedOutlier)
	assert.Zero(t, box.Stats.Evaluated-box.Stats.RejectedOutlier)
	assertContainsAll(t, box, pts, 1e-9)
}

func TestSolveNormalCap(t *testing.T) {
	pts := randomCloud(200, 4)
	box, err := NewSolver(Config{MaxUniqueNormals: 3, MaxHullFaces: -1}).Solve(pts)
	require.NoError(t, err)
	assert.Equal(t, MethodPCA, box.Method)
	assert.Greater(t, box.Stats.UniqueNormals, 3)
	assert.Zero(t, box.Stats.Evaluated)
}

func TestSolveContextCancelled(t *testing.T) {
	pts := randomCloud(100, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	box, err := new(Solver).SolveContext(ctx, pts)
	require.NoError(t, err)
	assert.True(t, box.Partial)
	assert.Equal(t, MethodPCA, box.Method)
	assertContainsAll(t, box, pts, 1e-9)
}

func sphereCloud(n int, seed int64) []geometry.Vector3 {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geometry.Vector3, n)
	for i := range pts {
		v := geometry.NewVector3(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		pts[i] = v.Normalize().Mul(3)
	}
	return pts
}

func TestSolveLargeCurvedCloud(t *testing.T) {
	pts := sphereCloud(20000, 6)

	start := time.Now()
	box, err := new(Solver).Solve(pts)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, MethodPCA, box.Method)
	assert.False(t, box.Partial)
	assertContainsAll(t, box, pts, 1e-9)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestSolveHullFaceLimit(t *testing.T) {
	pts := randomCloud(300, 8)

	box, err := NewSolver(Config{MaxHullFaces: 8}).Solve(pts)
	require.NoError(t, err)
	assert.Equal(t, MethodPCA, box.Method)
	assert.Zero(t, box.Stats.UniqueNormals)

	assert.Equal(t, 16*512, DefaultConfig().hullFaceLimit())
	assert.Equal(t, 48, Config{MaxUniqueNormals: 3}.hullFaceLimit())
	assert.Equal(t, 0, Config{MaxUniqueNormals: -1}.hullFaceLimit())
	assert.Equal(t, -1, Config{MaxHullFaces: -1}.hullFaceLimit())
}

func TestSolveContextDeadlineDuringHull(t *testing.T) {
	pts := sphereCloud(200000, 7)
	solver := NewSolver(Config{MaxUniqueNormals: -1, MaxHullFaces: -1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	box, err := solver.SolveContext(ctx, pts)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, box.Partial)
	assert.Equal(t, MethodPCA, box.Method)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"parallel dot above one", Config{ParallelDot: 1.5}},
		{"negative parallel dot", Config{ParallelDot: -0.5}},
		{"negative coplanar epsilon", Config{CoplanarEpsilon: -1}},
		{"negative merge tolerance", Config{NormalMergeTolerance: -1e-5}},
		{"nan ortho epsilon", Config{OrthoEpsilon: math.NaN()}},
		{"outlier factor below one", Config{OutlierVolumeFactor: 0.5}},
		{"negative degenerate extent", Config{DegenerateHalfExtent: -1}},
		{"hull epsilon of one", Config{HullEpsilon: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestUniqueNormalsFoldAndOrder(t *testing.T) {
	normals := []geometry.Vector3{
		geometry.NewVector3(0, 0, -1),
		geometry.NewVector3(-1, 0, 0),
		geometry.NewVector3(0, 1, 0),
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(0, 0, 2),
		geometry.NewVector3(1e-7, 1, 0),
	}
	got := uniqueNormals(normals, 1e-5)
	assert.Equal(t, []geometry.Vector3{
		geometry.NewVector3(0, 0, 1),
		geometry.NewVector3(0, 1, 0),
		geometry.NewVector3(1, 0, 0),
	}, got)
}

func TestOrthonormalBasis(t *testing.T) {
	r, ok := orthonormalBasis(geometry.NewVector3(1, 0, 0), geometry.NewVector3(1, 1, 0).Normalize(), 1e-9)
	require.True(t, ok)
	assert.True(t, r.IsOrthonormal(1e-12))
	assert.InDelta(t, 1.0, r.Det(), 1e-12)
	assert.InDelta(t, 1.0, r.Row(1).Y, 1e-12)

	_, ok = orthonormalBasis(geometry.NewVector3(0, 0, 1), geometry.NewVector3(0, 0, -1), 1e-9)
	assert.False(t, ok)
}

func TestConfigWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Config{}.WithDefaults())

	cfg := Config{ParallelDot: 0.99, MaxUniqueNormals: -1}.WithDefaults()
	assert.Equal(t, 0.99, cfg.ParallelDot)
	assert.Equal(t, -1, cfg.MaxUniqueNormals)
	assert.Equal(t, DefaultConfig().CoplanarEpsilon, cfg.CoplanarEpsilon)
}

func TestMethodText(t *testing.T) {
	for _, m := range []Method{MethodPCA, MethodExhaustive, MethodDegenerate} {
		text, err := m.MarshalText()
		require.NoError(t, err)

		var parsed Method
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMethod("aabb")
	assert.Error(t, err)
}

func TestSolveMethod(t *testing.T) {
	pts := randomCloud(80, 6)
	solver := new(Solver)

	pca, err := solver.SolveMethod(context.Background(), MethodPCA, pts)
	require.NoError(t, err)
	assert.Equal(t, MethodPCA, pca.Method)
	assert.Zero(t, pca.Stats.Evaluated)

	exhaustive, err := solver.SolveMethod(context.Background(), MethodExhaustive, pts)
	require.NoError(t, err)
	assert.LessOrEqual(t, exhaustive.Volume(), pca.Volume()+1e-9)

	_, err = solver.SolveMethod(context.Background(), MethodPCA, []geometry.Vector3{{X: math.NaN()}})
	assert.ErrorIs(t, err, ErrEmptyPointCloud)

	_, err = solver.SolveMethod(context.Background(), MethodDegenerate, pts)
	assert.Error(t, err)
}
