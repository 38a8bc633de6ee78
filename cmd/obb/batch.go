package main

import (
	"fmt"
	"os"
	"time"

	"github.com/philipparndt/obbkit/pkg/batch"
	"github.com/philipparndt/obbkit/pkg/config"
	"github.com/philipparndt/obbkit/pkg/report"
	"github.com/spf13/cobra"
)

var batchFlags struct {
	method  string
	format  string
	workers int
	timeout time.Duration
}

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Compute oriented bounding boxes for many files in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchFlags.method, "method", "m", "", "solver method: exhaustive or pca")
	f.StringVarP(&batchFlags.format, "format", "f", "", "report format: text, json or yaml")
	f.IntVarP(&batchFlags.workers, "workers", "w", 0, "number of parallel workers (default: one per CPU)")
	f.DurationVar(&batchFlags.timeout, "timeout", 0, "limit the search time per file, 0 for none")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	err := resolve(config.Flags{
		Method:  batchFlags.method,
		Format:  batchFlags.format,
		Workers: batchFlags.workers,
	})
	if err != nil {
		return err
	}

	results := batch.Run(cmd.Context(), batch.Options{
		Solver:           newSolver(),
		Method:           cfg.Method(),
		Workers:          cfg.Batch.Workers,
		Timeout:          batchFlags.timeout,
		ProgressInterval: 2 * time.Second,
		Logger:           logger,
	}, args)

	reports := make([]report.Report, len(results))
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			reports[i] = report.FromError(r.File, r.Err)
			continue
		}
		reports[i] = report.FromBox(r.File, r.Points, r.Box, r.AABB)
	}

	if err := report.Write(os.Stdout, cfg.Output.Format, reports...); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
