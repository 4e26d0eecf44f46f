// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/testutil"
	"github.com/vk/meshgrid/modules/gmsh"
)

func newRetrieved(t *testing.T, files map[string]string) *calcjob.Folder {
	t.Helper()
	folder, err := calcjob.NewFolder(t.TempDir(), "retrieved-*")
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, folder.Write(name, strings.NewReader(content)))
	}
	return folder
}

func infoWithArgs(args ...string) *calcjob.CalcInfo {
	return &calcjob.CalcInfo{CodesInfo: []calcjob.CodeInfo{{Executable: "gmsh", CmdlineParams: args}}}
}

func newParser(t *testing.T) *gmsh.Parser {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return &gmsh.Parser{Store: store}
}

func TestParser_Success(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	parser := newParser(t)
	retrieved := newRetrieved(t, map[string]string{"mesh.msh": testutil.MSH41UnitSquare})

	// --- Act ---
	res, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo", "-2", "-o", "mesh.msh"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, calcjob.ExitOK, code)
	require.NotNil(t, res)
	assert.Equal(t, "mesh.msh", res.Filename)
	assert.Equal(t, 4, res.Mesh.NumNodes)

	stored, err := parser.Store.ReadAll(res.Mshfile.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.MSH41UnitSquare, string(stored))
	assert.Equal(t, int64(len(testutil.MSH41UnitSquare)), res.Mshfile.Size)
}

func TestParser_OutputNameFromArgs(t *testing.T) {
	t.Parallel()

	parser := newParser(t)
	retrieved := newRetrieved(t, map[string]string{"custom.msh": testutil.MSH22UnitSquare})

	res, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo", "-o", "custom.msh"))
	require.NoError(t, err)
	assert.False(t, code.IsFailure())
	assert.Equal(t, "custom.msh", res.Filename)
}

func TestParser_FormatValueResemblingOutputFlag(t *testing.T) {
	t.Parallel()

	parser := newParser(t)
	retrieved := newRetrieved(t, map[string]string{"x.msh": testutil.MSH41UnitSquare})

	res, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo", "-format", "-o", "-o", "x.msh"))
	require.NoError(t, err)
	assert.Equal(t, calcjob.ExitOK, code)
	require.NotNil(t, res)
	assert.Equal(t, "x.msh", res.Filename)
}

func TestParser_MissingOutput(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	parser := newParser(t)
	retrieved := newRetrieved(t, map[string]string{"gmsh.log": "Info: done\n"})

	// --- Act ---
	res, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo", "-2"))

	// --- Assert ---
	require.NoError(t, err, "a missing output is a failure exit code, not an error")
	assert.Nil(t, res)
	assert.Equal(t, 300, code.Status)
	assert.Equal(t, "ERROR_MISSING_OUTPUT_FILES", code.Label)
	assert.Contains(t, code.Message, `"gmsh.log"`)
	assert.Contains(t, code.Message, `"mesh.msh"`)

	list, err := parser.Store.List()
	require.NoError(t, err)
	assert.Empty(t, list, "nothing should be stored on failure")
}

func TestParser_DefaultOutputFilename(t *testing.T) {
	t.Parallel()

	parser := newParser(t)
	parser.DefaultOutputFilename = "result.msh"
	retrieved := newRetrieved(t, map[string]string{"mesh.msh": testutil.MSH41UnitSquare})

	_, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo"))
	require.NoError(t, err)
	assert.Equal(t, calcjob.ErrorMissingOutputFiles.Status, code.Status)
	assert.Contains(t, code.Message, `"result.msh"`)
}

func TestParser_InvalidOutput(t *testing.T) {
	t.Parallel()

	parser := newParser(t)
	retrieved := newRetrieved(t, map[string]string{"mesh.msh": "not a mesh\n"})

	res, code, err := parser.Parse(context.Background(), retrieved, infoWithArgs("g.geo", "-o", "mesh.msh"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, calcjob.ErrorInvalidOutputFile.Status, code.Status)
	assert.Contains(t, code.Message, "mesh.msh")
}

func TestParser_Misconfigured(t *testing.T) {
	t.Parallel()

	retrieved := newRetrieved(t, nil)

	_, _, err := (&gmsh.Parser{}).Parse(context.Background(), retrieved, infoWithArgs("g.geo"))
	assert.ErrorContains(t, err, "artifact store is required")

	_, _, err = newParser(t).Parse(context.Background(), retrieved, &calcjob.CalcInfo{})
	assert.ErrorIs(t, err, calcjob.ErrNoCode)
}
