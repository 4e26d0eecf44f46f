// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/executor"
	"github.com/vk/meshgrid/internal/testutil"
	"github.com/vk/meshgrid/modules/gmsh"
	"github.com/zclconf/go-cty/cty"
)

type moduleFixture struct {
	module  *gmsh.Module
	fake    *testutil.FakeGmsh
	geofile string
	workDir string
}

func newModuleFixture(t *testing.T, mode testutil.FakeGmshMode) *moduleFixture {
	t.Helper()
	root := t.TempDir()
	store, err := artifact.NewStore(filepath.Join(root, "store"))
	require.NoError(t, err)

	geofile := filepath.Join(root, "unit_square.geo")
	require.NoError(t, os.WriteFile(geofile, []byte(testutil.UnitSquareGeo), 0o644))

	workDir := filepath.Join(root, "work")
	return &moduleFixture{
		module:  &gmsh.Module{Store: store, Runner: &calcjob.LocalRunner{}, WorkDir: workDir},
		fake:    testutil.WriteFakeGmsh(t, root, mode),
		geofile: geofile,
		workDir: workDir,
	}
}

func (f *moduleFixture) input(params cty.Value) *gmsh.Input {
	return &gmsh.Input{
		Geofile:        f.geofile,
		Parameters:     params,
		OutputFilename: gmsh.DefaultOutputFilename,
		Executable:     f.fake.Path,
	}
}

func failureCode(t *testing.T, err error) calcjob.ExitCode {
	t.Helper()
	var failed *calcjob.FailedError
	require.True(t, errors.As(err, &failed), "expected a *calcjob.FailedError, got %v", err)
	return failed.Code
}

func TestOnRunGmsh_Success(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newModuleFixture(t, testutil.FakeGmshWritesMesh)
	params := cty.ObjectVal(map[string]cty.Value{"2": cty.True, "3": cty.False})

	// --- Act ---
	out, err := f.module.OnRunGmsh(context.Background(), &gmsh.Deps{}, f.input(params))

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, []string{"unit_square.geo", "-2", "-o", "mesh.msh"}, out.Args)
	assert.Equal(t, out.Args, f.fake.Args(t), "gmsh should receive exactly the translated arguments")
	assert.Equal(t, "mesh.msh", out.Filename)
	assert.Equal(t, 2, out.Dims)
	assert.Equal(t, 4, out.NumNodes)
	assert.Equal(t, 2, out.NumElements)
	assert.Equal(t, []string{"surface"}, out.PhysicalNames)

	art, err := f.module.Store.Get(out.MeshID)
	require.NoError(t, err)
	assert.Equal(t, out.Digest, art.Digest)
	require.NoError(t, f.module.Store.Verify(out.MeshID))

	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "execution folders should be removed")
}

func TestOnRunGmsh_KeepWorkDir(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t, testutil.FakeGmshWritesMesh)
	f.module.KeepWorkDir = true

	_, err := f.module.OnRunGmsh(context.Background(), &gmsh.Deps{}, f.input(cty.NullVal(cty.DynamicPseudoType)))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(f.workDir, "gmsh-*", "unit_square.geo"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "the staged geometry should be left in the kept folder")
}

func TestOnRunGmsh_ParametersFile(t *testing.T) {
	t.Parallel()

	f := newModuleFixture(t, testutil.FakeGmshWritesMesh)
	optsPath := filepath.Join(filepath.Dir(f.geofile), "opts.yaml")
	require.NoError(t, os.WriteFile(optsPath, []byte("2: true\no: square.msh\n"), 0o644))

	in := f.input(cty.NullVal(cty.DynamicPseudoType))
	in.ParametersFile = optsPath
	out, err := f.module.OnRunGmsh(context.Background(), &gmsh.Deps{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"unit_square.geo", "-2", "-o", "square.msh"}, out.Args)
	assert.Equal(t, "square.msh", out.Filename)
}

func TestOnRunGmsh_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		mode       testutil.FakeGmshMode
		wantStatus int
		wantLabel  string
	}{
		{name: "no output file", mode: testutil.FakeGmshWritesNothing, wantStatus: 300, wantLabel: "ERROR_MISSING_OUTPUT_FILES"},
		{name: "non-zero exit", mode: testutil.FakeGmshFails, wantStatus: 301, wantLabel: "ERROR_EXECUTABLE_FAILED"},
		{name: "garbage output", mode: testutil.FakeGmshWritesGarbage, wantStatus: 302, wantLabel: "ERROR_INVALID_OUTPUT_FILE"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newModuleFixture(t, tc.mode)

			out, err := f.module.OnRunGmsh(context.Background(), &gmsh.Deps{}, f.input(cty.ObjectVal(map[string]cty.Value{"2": cty.True})))

			require.Error(t, err)
			assert.Nil(t, out)
			code := failureCode(t, err)
			assert.Equal(t, tc.wantStatus, code.Status)
			assert.Equal(t, tc.wantLabel, code.Label)

			list, err := f.module.Store.List()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestOnRunGmsh_InvalidInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(in *gmsh.Input)
		wantErr string
	}{
		{
			name:    "unknown option",
			mutate:  func(in *gmsh.Input) { in.Parameters = cty.ObjectVal(map[string]cty.Value{"4": cty.True}) },
			wantErr: `option "4": unknown option`,
		},
		{
			name:    "both parameter sources",
			mutate:  func(in *gmsh.Input) { in.ParametersFile = "opts.yaml" },
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing geofile",
			mutate:  func(in *gmsh.Input) { in.Geofile = filepath.Join(filepath.Dir(in.Geofile), "nope.geo") },
			wantErr: "geofile",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newModuleFixture(t, testutil.FakeGmshWritesMesh)
			in := f.input(cty.ObjectVal(map[string]cty.Value{"2": cty.True}))
			tc.mutate(in)

			_, err := f.module.OnRunGmsh(context.Background(), &gmsh.Deps{}, in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			var failed *calcjob.FailedError
			assert.False(t, errors.As(err, &failed), "input problems are errors, not exit codes")
		})
	}
}

func TestGmshStep_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := testutil.WriteFakeGmsh(t, t.TempDir(), testutil.FakeGmshWritesMesh)
	gridHCL := `
		step "gmsh" "square" {
			description = "Mesh the unit square."
			arguments {
				geofile    = "${path.grid}/unit_square.geo"
				executable = "` + fake.Path + `"
				parameters = {
					"2"   = true
					order = 2
				}
			}
		}

		step "print" "nodes" {
			arguments {
				label = "nodes"
				input = step.gmsh.square.output.num_nodes
			}
		}
	`
	files := map[string]string{
		"grid/main.hcl":        gridHCL,
		"grid/unit_square.geo": testutil.UnitSquareGeo,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	rec := testutil.AssertStepRan(t, result, "gmsh", "square")
	assert.Equal(t, "mesh.msh", rec.Output.GetAttr("filename").AsString())
	testutil.AssertStepRan(t, result, "print", "nodes")
	assert.Equal(t, []string{"unit_square.geo", "-2", "-order", "2", "-o", "mesh.msh"}, fake.Args(t))
	assert.Contains(t, result.LogOutput, "nodes:\n      4\n")

	list, err := result.App.Store().List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mesh.msh", list[0].Filename)
}

func TestGmshStep_MissingOutputSkipsDependents(t *testing.T) {
	t.Parallel()

	fake := testutil.WriteFakeGmsh(t, t.TempDir(), testutil.FakeGmshWritesNothing)
	gridHCL := `
		step "gmsh" "square" {
			arguments {
				geofile    = "${path.grid}/unit_square.geo"
				executable = "` + fake.Path + `"
				parameters = { "2" = true }
			}
		}

		step "print" "after" {
			arguments {
				input = step.gmsh.square.output.mesh_id
			}
		}

		step "print" "independent" {
			arguments {
				input = "still runs"
			}
		}
	`
	files := map[string]string{
		"grid/main.hcl":        gridHCL,
		"grid/unit_square.geo": testutil.UnitSquareGeo,
	}

	result := testutil.RunIntegrationTest(t, files)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "step.gmsh.square (failed)")
	rec := testutil.AssertStepStatus(t, result, "gmsh", "square", executor.StatusFailed)
	assert.Equal(t, calcjob.ErrorMissingOutputFiles.Status, rec.ExitCode.Status)
	testutil.AssertStepStatus(t, result, "print", "after", executor.StatusSkipped)
	testutil.AssertStepRan(t, result, "print", "independent")
	assert.Contains(t, result.LogOutput, "ERROR_MISSING_OUTPUT_FILES")
}
