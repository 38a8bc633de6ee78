// Package obb computes oriented bounding boxes of point clouds.
//
// Two solvers are provided. PCA aligns the box with the principal axes of
// the point covariance; it is cheap and always defined. Solver.Solve reduces
// the cloud to its convex hull and tries every orthonormal basis that can be
// built from three distinct hull face normals, keeping the one with the
// smallest volume. It never returns a box larger than the PCA box.
package obb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/hull"
)

// ErrEmptyPointCloud is returned when there is no finite point to enclose
var ErrEmptyPointCloud = errors.New("obb: point cloud has no finite points")

// Solver computes minimum-volume oriented bounding boxes. The zero value is
// ready to use with default tolerances. A Solver holds no state between
// calls and may be shared by concurrent goroutines.
type Solver struct {
	Config Config
	Logger *slog.Logger
}

// NewSolver creates a solver with the given tolerances
func NewSolver(cfg Config) *Solver {
	return &Solver{Config: cfg}
}

func (s *Solver) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Solve computes the oriented bounding box of points
func (s *Solver) Solve(points []geometry.Vector3) (Box, error) {
	return s.SolveContext(context.Background(), points)
}

// SolveContext is Solve with cancellation. The deadline is checked while the
// hull is built and between candidate pairs. A cancelled solve returns the
// best box found so far, which is the PCA box when the hull was not
// finished, with Partial set instead of an error.
func (s *Solver) SolveContext(ctx context.Context, points []geometry.Vector3) (Box, error) {
	cfg := s.Config.WithDefaults()
	log := s.logger()

	pts := finitePoints(points)
	if dropped := len(points) - len(pts); dropped > 0 {
		log.Warn("dropping non-finite points", "dropped", dropped, "remaining", len(pts))
	}
	if len(pts) == 0 {
		return Box{}, ErrEmptyPointCloud
	}

	h, err := hull.ComputeContext(ctx, pts, cfg.HullEpsilon, cfg.hullFaceLimit())
	switch {
	case errors.Is(err, hull.ErrTooManyFaces):
		log.Warn("convex hull too large, using PCA box",
			"points", len(pts), "limit", cfg.hullFaceLimit())
		return PCA(pts), nil
	case err != nil:
		log.Warn("solve cancelled while building hull, using PCA box", "error", err)
		box := PCA(pts)
		box.Partial = true
		return box, nil
	}

	switch h.Dim {
	case 0:
		log.Debug("coincident points, using degenerate box", "points", len(pts))
		return degenerateBox(geometry.Mean(pts), cfg.DegenerateHalfExtent), nil
	case 1, 2:
		log.Debug("flat point cloud, using PCA box", "points", len(pts), "dim", h.Dim)
		return PCA(pts), nil
	}

	reference := PCA(pts)
	if ctx.Err() != nil {
		reference.Partial = true
		return reference, nil
	}
	normals := uniqueNormals(h.Normals(), cfg.NormalMergeTolerance)
	reference.Stats.UniqueNormals = len(normals)

	if len(normals) < 3 {
		log.Debug("too few unique normals, using PCA box", "normals", len(normals))
		return reference, nil
	}
	if cfg.MaxUniqueNormals > 0 && len(normals) > cfg.MaxUniqueNormals {
		log.Warn("too many unique hull normals, using PCA box",
			"normals", len(normals), "limit", cfg.MaxUniqueNormals)
		return reference, nil
	}

	origin := h.Centroid()
	res := search(ctx, cfg, h.Vertices, origin, normals, reference.Volume())
	log.Debug("triplet search finished",
		"hull_vertices", len(h.Vertices),
		"normals", len(normals),
		"evaluated", res.stats.Evaluated,
		"partial", res.partial)

	if !res.found || res.best.volume > reference.Volume() {
		reference.Stats = res.stats
		reference.Partial = res.partial
		return reference, nil
	}

	return Box{
		Rotation: res.best.rotation,
		Min:      res.best.min,
		Max:      res.best.max,
		Origin:   origin,
		Method:   MethodExhaustive,
		Partial:  res.partial,
		Stats:    res.stats,
	}, nil
}

// SolveMethod computes the box with the given method. MethodPCA skips the
// hull search entirely; MethodExhaustive is SolveContext.
func (s *Solver) SolveMethod(ctx context.Context, method Method, points []geometry.Vector3) (Box, error) {
	switch method {
	case MethodExhaustive:
		return s.SolveContext(ctx, points)
	case MethodPCA:
		pts := finitePoints(points)
		if len(pts) == 0 {
			return Box{}, ErrEmptyPointCloud
		}
		return PCA(pts), nil
	}
	return Box{}, fmt.Errorf("obb: method %s cannot be requested", method)
}

func finitePoints(points []geometry.Vector3) []geometry.Vector3 {
	for _, p := range points {
		if !p.IsFinite() {
			out := make([]geometry.Vector3, 0, len(points))
			for _, q := range points {
				if q.IsFinite() {
					out = append(out, q)
				}
			}
			return out
		}
	}
	return points
}
