package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/philipparndt/obbkit/pkg/config"
	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/openscad"
	"github.com/philipparndt/obbkit/pkg/pointcloud"
	"github.com/philipparndt/obbkit/pkg/report"
	"github.com/philipparndt/obbkit/pkg/stl"
	"github.com/philipparndt/obbkit/pkg/watcher"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	method   string
	format   string
	out      string
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Recompute the oriented bounding box whenever a file changes",
	Long: `Watch a file and print a new report each time it is saved.
For OpenSCAD sources every file reached through use/include is watched too.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&watchFlags.method, "method", "m", "", "solver method: exhaustive or pca")
	f.StringVarP(&watchFlags.format, "format", "f", "", "report format: text, json or yaml")
	f.StringVarP(&watchFlags.out, "out", "o", "", "rewrite the box mesh to this STL file on every change")
	f.DurationVar(&watchFlags.debounce, "debounce", 300*time.Millisecond, "quiet period before recomputing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	err := resolve(config.Flags{
		Method: watchFlags.method,
		Format: watchFlags.format,
	})
	if err != nil {
		return err
	}
	filename := args[0]
	ctx := cmd.Context()

	fw, err := watcher.New(watchFlags.debounce, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(watchedFiles(filename)...); err != nil {
		return err
	}

	// The watcher serializes callbacks, so a save during a long search waits for it
	recompute := func() {
		if err := computeAndReport(ctx, filename); err != nil {
			logger.Error("recompute failed", "file", filename, "error", err)
		}
		// Dependencies may have changed with the edit
		if err := fw.Add(watchedFiles(filename)...); err != nil {
			logger.Warn("failed to watch dependencies", "error", err)
		}
	}

	recompute()
	logger.Info("watching for changes, press Ctrl+C to stop", "files", len(fw.Files()))

	err = fw.Run(ctx, func(path string) {
		logger.Info("file changed", "file", path)
		recompute()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchedFiles returns filename plus its OpenSCAD dependencies
func watchedFiles(filename string) []string {
	if !strings.EqualFold(filepath.Ext(filename), ".scad") {
		return []string{filename}
	}
	renderer := openscad.NewRenderer(filepath.Dir(filename))
	deps, err := renderer.ResolveDependencies(filepath.Base(filename))
	if err != nil {
		logger.Warn("failed to resolve OpenSCAD dependencies", "file", filename, "error", err)
		return []string{filename}
	}
	return deps
}

func computeAndReport(ctx context.Context, filename string) error {
	points, err := pointcloud.Load(ctx, filename)
	if err != nil {
		return err
	}

	box, err := newSolver().SolveMethod(ctx, cfg.Method(), points)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	if watchFlags.out != "" {
		if err := stl.Save(watchFlags.out, box.Mesh().Model("obb"), cfg.Output.Binary); err != nil {
			return fmt.Errorf("failed to write box mesh: %w", err)
		}
	}

	r := report.FromBox(filename, len(points), box, geometry.BoundingBoxOf(points))
	return report.Write(os.Stdout, cfg.Output.Format, r)
}
