package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/pkg/preview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obb.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, obb.DefaultConfig(), cfg.Solver)
	assert.Equal(t, preview.DefaultOptions(), cfg.Preview)
	assert.Equal(t, "exhaustive", cfg.Output.Method)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, runtime.NumCPU(), cfg.Batch.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[solver]
parallel_dot = 0.999
max_unique_normals = -1

[output]
method = "pca"
format = "yaml"

[preview]
width = 256

[batch]
workers = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.999, cfg.Solver.ParallelDot)
	assert.Equal(t, -1, cfg.Solver.MaxUniqueNormals)
	assert.Equal(t, obb.DefaultConfig().CoplanarEpsilon, cfg.Solver.CoplanarEpsilon)
	assert.Equal(t, obb.MethodPCA, cfg.Method())
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 256, cfg.Preview.Width)
	assert.Equal(t, preview.DefaultOptions().Height, cfg.Preview.Height)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[solver]\nparalel_dot = 0.9\n"},
		{"syntax", "[solver\n"},
		{"unknown method", "[output]\nmethod = \"aabb\"\n"},
		{"degenerate method", "[output]\nmethod = \"degenerate\"\n"},
		{"unknown format", "[output]\nformat = \"xml\"\n"},
		{"parallel dot above one", "[solver]\nparallel_dot = 1.5\n"},
		{"negative coplanar epsilon", "[solver]\ncoplanar_epsilon = -1.0\n"},
		{"outlier factor below one", "[solver]\noutlier_volume_factor = 0.1\n"},
		{"negative hull epsilon", "[solver]\nhull_epsilon = -1e-9\n"},
		{"negative preview width", "[preview]\nwidth = -10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalidTolerance(t *testing.T) {
	_, err := Load(writeConfig(t, "[solver]\nparallel_dot = 1.5\n"))
	assert.ErrorIs(t, err, obb.ErrInvalidConfig)

	cfg, err := Load(writeConfig(t, "[solver]\nmax_hull_faces = 100\n"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Solver.MaxHullFaces)
}

func TestResolveFlagsOverride(t *testing.T) {
	cfg := Default()
	cfg.Resolve(Flags{Method: "pca", Format: "json", Binary: true, Workers: 7})

	assert.Equal(t, obb.MethodPCA, cfg.Method())
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Output.Binary)
	assert.Equal(t, 7, cfg.Batch.Workers)

	// Empty flags keep what is there
	cfg.Resolve(Flags{})
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 7, cfg.Batch.Workers)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Solver.ParallelDot = 0.99

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	assert.Contains(t, buf.String(), "[solver]")

	loaded, err := Load(writeConfig(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
