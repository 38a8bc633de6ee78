// Package batch computes oriented boxes for many files in parallel.
package batch

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/pkg/pointcloud"
	"golang.org/x/sync/errgroup"
)

// Options holds the shared settings of a batch run
type Options struct {
	Solver *obb.Solver
	Method obb.Method
	// Workers bounds the number of files processed at once. Zero means one
	// per CPU.
	Workers int
	// Timeout limits the search per file. A file that runs out of time gets
	// the best box found so far, marked partial.
	Timeout time.Duration
	// ProgressInterval is how often progress is logged. Zero disables it.
	ProgressInterval time.Duration
	Logger           *slog.Logger
}

// Result holds the outcome for one file
type Result struct {
	File   string
	Points int
	AABB   geometry.BoundingBox
	Box    obb.Box
	Err    error
}

// Run processes files with a bounded worker pool. Results are returned in
// the order of files; a failing file does not stop the others.
func Run(ctx context.Context, opts Options, files []string) []Result {
	if opts.Solver == nil {
		opts.Solver = new(obb.Solver)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	total := len(files)
	results := make([]Result, total)
	var processed, failed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if opts.ProgressInterval > 0 {
		go func() {
			ticker := time.NewTicker(opts.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if p := processed.Load(); p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						log.Info("progress", "done", p, "total", total, "files_per_sec", rate)
					}
				}
			}
		}()
	}

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, file := range files {
		g.Go(func() error {
			results[i] = processFile(ctx, opts, file)
			if results[i].Err != nil {
				failed.Add(1)
				log.Debug("file failed", "file", file, "error", results[i].Err)
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	log.Info("batch finished",
		"files", total,
		"failed", failed.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return results
}

func processFile(ctx context.Context, opts Options, file string) Result {
	res := Result{File: file}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	points, err := pointcloud.Load(ctx, file)
	if err != nil {
		res.Err = err
		return res
	}
	res.Points = len(points)
	res.AABB = geometry.BoundingBoxOf(points)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res.Box, res.Err = opts.Solver.SolveMethod(ctx, opts.Method, points)
	return res
}
