package main

import (
	"fmt"

	"github.com/philipparndt/obbkit/pkg/analysis"
	"github.com/philipparndt/obbkit/pkg/config"
	"github.com/philipparndt/obbkit/pkg/pointcloud"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about a mesh file",
	Long:  "Show triangle count, surface area and dimensions of an STL or OpenSCAD file, and compare its axis-aligned bounding box with the oriented one.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if err := resolve(config.Flags{}); err != nil {
		return err
	}
	filename := args[0]

	model, err := pointcloud.LoadModel(cmd.Context(), filename)
	if err != nil {
		return err
	}

	result, err := analysis.AnalyzeModel(cmd.Context(), model, newSolver())
	if err != nil {
		return err
	}
	box := result.OrientedBox

	fmt.Println("Mesh Information")
	fmt.Println("================")
	if model.Name != "" {
		fmt.Printf("Name: %s\n", model.Name)
	}
	fmt.Printf("File: %s\n\n", filename)

	fmt.Println("Model Statistics:")
	fmt.Printf("  Triangles: %d\n", result.TriangleCount)
	fmt.Printf("  Vertices: %d\n", result.VertexCount)
	fmt.Printf("  Surface Area: %.6f square units\n\n", result.SurfaceArea)

	fmt.Println("Axis-Aligned Bounding Box:")
	fmt.Printf("  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Printf("  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Printf("  Center: %s\n", analysis.FormatVector(result.BoundingBox.Center()))
	fmt.Printf("  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Printf("  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Printf("  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Printf("  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
	fmt.Printf("  Volume: %.6f cubic units\n\n", result.Volume)

	fmt.Printf("Oriented Bounding Box (%s):\n", box.Method)
	fmt.Printf("  Center: %s\n", analysis.FormatVector(box.Center()))
	fmt.Printf("  Extents: %s\n", analysis.FormatVector(box.Extents()))
	for i := 0; i < 3; i++ {
		fmt.Printf("  Axis %d: %s\n", i, analysis.FormatVector(box.Axis(i)))
	}
	fmt.Printf("  Volume: %.6f cubic units\n", box.Volume())
	if result.Volume > 0 {
		fmt.Printf("  Fill Ratio: %.1f%% of the axis-aligned box\n", 100*result.FillRatio)
	}
	return nil
}
