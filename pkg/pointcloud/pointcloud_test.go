package pointcloud

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philipparndt/obbkit/pkg/geometry"
	"github.com/philipparndt/obbkit/pkg/stl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadXYZ(t *testing.T) {
	src := "# scan\n1 2 3\n4,5,6\n\n7\t8\t9 255 0 0\n"
	points, err := ReadXYZ(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []geometry.Vector3{
		geometry.NewVector3(1, 2, 3),
		geometry.NewVector3(4, 5, 6),
		geometry.NewVector3(7, 8, 9),
	}, points)

	_, err = ReadXYZ(strings.NewReader("1 2\n"))
	assert.Error(t, err)
}

func TestReadOBJ(t *testing.T) {
	src := "o cube\nv 0 0 0\nv 1 0 0\nvn 0 0 1\nv 0 1 0.5\nf 1 2 3\n"
	points, err := ReadOBJ(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []geometry.Vector3{
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(0, 1, 0.5),
	}, points)
}

func TestReadJSON(t *testing.T) {
	points, err := ReadJSON(strings.NewReader(`[[1, 2, 3], {"x": 4, "y": 5, "z": 6}]`))
	require.NoError(t, err)
	assert.Equal(t, []geometry.Vector3{
		geometry.NewVector3(1, 2, 3),
		geometry.NewVector3(4, 5, 6),
	}, points)

	_, err = ReadJSON(strings.NewReader(`[[1, 2]]`))
	assert.Error(t, err)
	_, err = ReadJSON(strings.NewReader(`[{"x": 1}]`))
	assert.Error(t, err)
}

func TestLoadSTL(t *testing.T) {
	model := stl.NewModel("tri")
	model.AddTriangle(geometry.NewTriangleFromVertices(
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(0, 1, 0),
	))
	model.AddTriangle(geometry.NewTriangleFromVertices(
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(1, 1, 0),
		geometry.NewVector3(0, 1, 0),
	))

	path := filepath.Join(t.TempDir(), "quad.stl")
	require.NoError(t, stl.Save(path, model, false))

	points, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, points, 4)

	loaded, points, err := LoadWithModel(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.TriangleCount())
	assert.Len(t, points, 4)
}

func TestLoadWithModelPointFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.xyz")
	require.NoError(t, os.WriteFile(path, []byte("0 0 0\n1 1 1\n"), 0o644))

	model, points, err := LoadWithModel(context.Background(), path)
	require.NoError(t, err)
	assert.Nil(t, model)
	assert.Len(t, points, 2)

	_, err = LoadModel(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotAMesh)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "points.ply")
	require.NoError(t, os.WriteFile(unknown, []byte("ply\n"), 0o644))
	_, err := Load(context.Background(), unknown)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := filepath.Join(dir, "empty.xyz")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = Load(context.Background(), empty)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = Load(context.Background(), filepath.Join(dir, "missing.xyz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
