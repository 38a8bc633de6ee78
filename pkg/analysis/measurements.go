package analysis

import (
	"context"
	"fmt"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/pkg/stl"
)

// MeasurementResult contains various measurements of an STL model
type MeasurementResult struct {
	TriangleCount int
	VertexCount   int
	SurfaceArea   float64

	BoundingBox geometry.BoundingBox
	Dimensions  geometry.Vector3
	Volume      float64

	OrientedBox obb.Box
	// FillRatio is the oriented box volume relative to the axis-aligned one.
	// Values well below 1 mean the model sits at an angle to the world axes.
	FillRatio float64
}

// AnalyzeModel measures a model and fits its oriented bounding box
func AnalyzeModel(ctx context.Context, model *stl.Model, solver *obb.Solver) (*MeasurementResult, error) {
	vertices := model.Vertices()

	result := &MeasurementResult{
		TriangleCount: model.TriangleCount(),
		VertexCount:   len(vertices),
		SurfaceArea:   model.SurfaceArea(),
		BoundingBox:   model.BoundingBox(),
	}
	result.Dimensions = result.BoundingBox.Size()
	result.Volume = result.BoundingBox.Volume()

	box, err := solver.SolveContext(ctx, vertices)
	if err != nil {
		return nil, fmt.Errorf("failed to fit oriented box: %w", err)
	}
	result.OrientedBox = box
	if result.Volume > 0 {
		result.FillRatio = box.Volume() / result.Volume
	}

	return result, nil
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
