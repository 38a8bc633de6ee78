package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/philipparndt/obbkit/pkg/config"
	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	// cfg and logger are set up before any subcommand runs
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "obb",
	Short: "Minimum-volume oriented bounding boxes for meshes and point clouds",
	Long: `obb fits the smallest oriented bounding box around a mesh or point cloud.
It reads STL, OBJ, XYZ, JSON and OpenSCAD files, prints the box as text, JSON
or YAML and can write it as an STL mesh or render a preview image.`,
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg = config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	return nil
}

// resolve merges command flags into the configuration
func resolve(flags config.Flags) error {
	cfg.Resolve(flags)
	return cfg.Validate()
}

func newSolver() *obb.Solver {
	return &obb.Solver{Config: cfg.Solver, Logger: logger}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
