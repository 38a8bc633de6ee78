package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/philipparndt/obbkit/pkg/config"
	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/pointcloud"
	"github.com/philipparndt/obbkit/pkg/preview"
	"github.com/philipparndt/obbkit/pkg/report"
	"github.com/philipparndt/obbkit/pkg/stl"
	"github.com/spf13/cobra"
)

var boxFlags struct {
	method  string
	format  string
	out     string
	binary  bool
	preview string
	timeout time.Duration
}

var boxCmd = &cobra.Command{
	Use:   "box [file]",
	Short: "Compute the oriented bounding box of a file",
	Long: `Compute the minimum-volume oriented bounding box of a mesh or point cloud.

The exhaustive method tries every orientation spanned by the convex hull face
normals and never returns a box larger than the PCA box. Use --timeout to
bound the search; the best box found so far is reported as partial.`,
	Args: cobra.ExactArgs(1),
	RunE: runBox,
}

func init() {
	f := boxCmd.Flags()
	f.StringVarP(&boxFlags.method, "method", "m", "", "solver method: exhaustive or pca")
	f.StringVarP(&boxFlags.format, "format", "f", "", "report format: text, json or yaml")
	f.StringVarP(&boxFlags.out, "out", "o", "", "write the box mesh to this STL file")
	f.BoolVar(&boxFlags.binary, "binary", false, "write binary STL")
	f.StringVar(&boxFlags.preview, "preview", "", "render a preview image (.png or .webp)")
	f.DurationVar(&boxFlags.timeout, "timeout", 0, "limit the search time, 0 for none")
	rootCmd.AddCommand(boxCmd)
}

func runBox(cmd *cobra.Command, args []string) error {
	err := resolve(config.Flags{
		Method: boxFlags.method,
		Format: boxFlags.format,
		Binary: boxFlags.binary,
	})
	if err != nil {
		return err
	}
	filename := args[0]

	ctx := cmd.Context()
	model, points, err := pointcloud.LoadWithModel(ctx, filename)
	if err != nil {
		return err
	}

	if boxFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, boxFlags.timeout)
		defer cancel()
	}

	start := time.Now()
	box, err := newSolver().SolveMethod(ctx, cfg.Method(), points)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	logger.Debug("box computed", "file", filename, "method", box.Method, "elapsed", time.Since(start))
	if box.Partial {
		logger.Warn("search did not finish, box may not be minimal", "file", filename)
	}

	if boxFlags.out != "" {
		if err := stl.Save(boxFlags.out, box.Mesh().Model("obb"), cfg.Output.Binary); err != nil {
			return fmt.Errorf("failed to write box mesh: %w", err)
		}
		logger.Info("wrote box mesh", "file", boxFlags.out)
	}

	if boxFlags.preview != "" {
		img := preview.Render(model, points, &box, cfg.Preview)
		if err := preview.Save(boxFlags.preview, img); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
		logger.Info("wrote preview", "file", boxFlags.preview)
	}

	r := report.FromBox(filename, len(points), box, geometry.BoundingBoxOf(points))
	return report.Write(os.Stdout, cfg.Output.Format, r)
}
