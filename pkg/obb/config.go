package obb

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("obb: invalid config")

// Config holds the numerical tolerances of the solver. A zero field means
// "use the default"; see DefaultConfig.
type Config struct {
	// ParallelDot rejects a normal pair whose |dot| exceeds it.
	ParallelDot float64 `toml:"parallel_dot" json:"parallel_dot" yaml:"parallel_dot"`
	// CoplanarEpsilon rejects a triplet whose |triple product| is below it.
	CoplanarEpsilon float64 `toml:"coplanar_epsilon" json:"coplanar_epsilon" yaml:"coplanar_epsilon"`
	// NormalMergeTolerance is the Euclidean distance under which two folded
	// unit normals count as the same direction.
	NormalMergeTolerance float64 `toml:"normal_merge_tolerance" json:"normal_merge_tolerance" yaml:"normal_merge_tolerance"`
	// OrthoEpsilon is the smallest residual norm accepted during Gram-Schmidt.
	OrthoEpsilon float64 `toml:"ortho_epsilon" json:"ortho_epsilon" yaml:"ortho_epsilon"`
	// OutlierVolumeFactor caps candidate volumes at reference volume times this factor.
	OutlierVolumeFactor float64 `toml:"outlier_volume_factor" json:"outlier_volume_factor" yaml:"outlier_volume_factor"`
	// DegenerateHalfExtent is the half size of the box returned for coincident points.
	DegenerateHalfExtent float64 `toml:"degenerate_half_extent" json:"degenerate_half_extent" yaml:"degenerate_half_extent"`
	// HullEpsilon is the relative plane tolerance of the convex hull.
	HullEpsilon float64 `toml:"hull_epsilon" json:"hull_epsilon" yaml:"hull_epsilon"`
	// MaxUniqueNormals bounds the cubic search. Larger normal sets fall back to PCA.
	// Negative disables the cap.
	MaxUniqueNormals int `toml:"max_unique_normals" json:"max_unique_normals" yaml:"max_unique_normals"`
	// MaxHullFaces abandons the hull, and falls back to PCA, once it has more
	// faces than this. Zero means sixteen faces per allowed unique normal.
	// Negative disables the limit.
	MaxHullFaces int `toml:"max_hull_faces" json:"max_hull_faces" yaml:"max_hull_faces"`
}

// DefaultConfig returns the default tolerances
func DefaultConfig() Config {
	return Config{
		ParallelDot:          0.9995,
		CoplanarEpsilon:      1e-4,
		NormalMergeTolerance: 1e-5,
		OrthoEpsilon:         1e-9,
		OutlierVolumeFactor:  1e6,
		DegenerateHalfExtent: 1e-4,
		HullEpsilon:          1e-9,
		MaxUniqueNormals:     512,
	}
}

// WithDefaults returns c with every zero field replaced by its default
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ParallelDot == 0 {
		c.ParallelDot = d.ParallelDot
	}
	if c.CoplanarEpsilon == 0 {
		c.CoplanarEpsilon = d.CoplanarEpsilon
	}
	if c.NormalMergeTolerance == 0 {
		c.NormalMergeTolerance = d.NormalMergeTolerance
	}
	if c.OrthoEpsilon == 0 {
		c.OrthoEpsilon = d.OrthoEpsilon
	}
	if c.OutlierVolumeFactor == 0 {
		c.OutlierVolumeFactor = d.OutlierVolumeFactor
	}
	if c.DegenerateHalfExtent == 0 {
		c.DegenerateHalfExtent = d.DegenerateHalfExtent
	}
	if c.HullEpsilon == 0 {
		c.HullEpsilon = d.HullEpsilon
	}
	if c.MaxUniqueNormals == 0 {
		c.MaxUniqueNormals = d.MaxUniqueNormals
	}
	return c
}

// hullFaceLimit resolves MaxHullFaces. Zero or negative disables the limit.
func (c Config) hullFaceLimit() int {
	if c.MaxHullFaces != 0 {
		return c.MaxHullFaces
	}
	if c.MaxUniqueNormals > 0 {
		return 16 * c.MaxUniqueNormals
	}
	return 0
}

// Validate reports tolerances outside their meaningful range. Zero fields
// are accepted since they select the default.
func (c Config) Validate() error {
	c = c.WithDefaults()
	switch {
	case !(c.ParallelDot > 0 && c.ParallelDot < 1):
		return fmt.Errorf("%w: parallel_dot must be in (0, 1), got %g", ErrInvalidConfig, c.ParallelDot)
	case !(c.CoplanarEpsilon > 0 && c.CoplanarEpsilon < 1):
		return fmt.Errorf("%w: coplanar_epsilon must be in (0, 1), got %g", ErrInvalidConfig, c.CoplanarEpsilon)
	case !(c.NormalMergeTolerance > 0 && c.NormalMergeTolerance < 1):
		return fmt.Errorf("%w: normal_merge_tolerance must be in (0, 1), got %g", ErrInvalidConfig, c.NormalMergeTolerance)
	case !(c.OrthoEpsilon > 0 && c.OrthoEpsilon < 1):
		return fmt.Errorf("%w: ortho_epsilon must be in (0, 1), got %g", ErrInvalidConfig, c.OrthoEpsilon)
	case !(c.OutlierVolumeFactor >= 1) || math.IsInf(c.OutlierVolumeFactor, 1):
		return fmt.Errorf("%w: outlier_volume_factor must be a finite value >= 1, got %g", ErrInvalidConfig, c.OutlierVolumeFactor)
	case !(c.DegenerateHalfExtent > 0) || math.IsInf(c.DegenerateHalfExtent, 1):
		return fmt.Errorf("%w: degenerate_half_extent must be positive and finite, got %g", ErrInvalidConfig, c.DegenerateHalfExtent)
	case !(c.HullEpsilon > 0 && c.HullEpsilon < 1):
		return fmt.Errorf("%w: hull_epsilon must be in (0, 1), got %g", ErrInvalidConfig, c.HullEpsilon)
	}
	return nil
}
