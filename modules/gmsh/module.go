// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for the gmsh runner.
type Module struct {
	Store  *artifact.Store
	Runner calcjob.Runner
	// WorkDir is where execution folders are created. Empty means the
	// system temp directory.
	WorkDir string
	// KeepWorkDir leaves execution folders on disk for inspection.
	KeepWorkDir bool
}

// Input defines the arguments for the gmsh runner.
type Input struct {
	Geofile             string    `bggo:"geofile"`
	Parameters          cty.Value `bggo:"parameters"`
	ParametersFile      string    `bggo:"parameters_file"`
	OutputFilename      string    `bggo:"output_filename"`
	Executable          string    `bggo:"executable"`
	WithMPI             bool      `bggo:"with_mpi"`
	MaxWallclockSeconds float64   `bggo:"max_wallclock_seconds"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output is what a gmsh step exposes to later steps.
type Output struct {
	MeshID        string   `cty:"mesh_id"`
	Filename      string   `cty:"filename"`
	Digest        string   `cty:"digest"`
	Size          int64    `cty:"size"`
	Dims          int      `cty:"dims"`
	NumNodes      int      `cty:"num_nodes"`
	NumElements   int      `cty:"num_elements"`
	PhysicalNames []string `cty:"physical_names"`
	Args          []string `cty:"args"`
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Handlers.RegisterHandler("OnRunGmsh", &handlers.RegisteredHandler{
		Input:     func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Deps:      func() any { return new(Deps) },
		Fn:        m.OnRunGmsh,
	})
}

// Manifest returns the embedded runner manifest.
func (m *Module) Manifest() (string, []byte) {
	return "modules/gmsh/manifest.hcl", manifest
}

// parameters resolves the option set from either the inline value or the
// options file.
func (in *Input) parameters() (*Parameters, error) {
	inline := !in.Parameters.IsNull()
	switch {
	case inline && in.ParametersFile != "":
		return nil, errors.New("parameters and parameters_file are mutually exclusive")
	case in.ParametersFile != "":
		return LoadParametersFile(in.ParametersFile)
	default:
		return ParametersFromCty(in.Parameters)
	}
}

// OnRunGmsh is the handler for the 'gmsh' runner's on_run lifecycle event.
// It stages the geometry in a fresh folder, runs gmsh, retrieves the
// expected mesh and stores it.
func (m *Module) OnRunGmsh(ctx context.Context, _ *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)
	if m.Store == nil {
		return nil, errors.New("gmsh: artifact store is not configured")
	}
	runner := m.Runner
	if runner == nil {
		runner = &calcjob.LocalRunner{}
	}

	params, err := input.parameters()
	if err != nil {
		return nil, err
	}

	geofile, err := filepath.Abs(input.Geofile)
	if err != nil {
		return nil, fmt.Errorf("gmsh: invalid geofile path: %w", err)
	}
	if _, err := os.Stat(geofile); err != nil {
		return nil, fmt.Errorf("gmsh: geofile: %w", err)
	}

	calc, err := NewCalculation(geofile, params, Options{
		OutputFilename: input.OutputFilename,
		Executable:     input.Executable,
		WithMPI:        input.WithMPI,
		MaxWallclock:   time.Duration(input.MaxWallclockSeconds * float64(time.Second)),
	})
	if err != nil {
		return nil, err
	}

	workDir := m.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	folder, err := calcjob.NewFolder(workDir, "gmsh-*")
	if err != nil {
		return nil, err
	}
	if m.KeepWorkDir {
		logger.Info("Keeping execution folder.", "path", folder.Path())
	} else {
		defer folder.Remove()
	}

	info, err := calc.PrepareForSubmission(folder)
	if err != nil {
		return nil, err
	}
	if err := info.Stage(folder); err != nil {
		return nil, err
	}

	args := info.CodesInfo[0].CmdlineParams
	logger.Info("Running gmsh.", "executable", info.CodesInfo[0].Executable, "args", strings.Join(args, " "))
	res, err := calcjob.Execute(ctx, runner, folder, info, calc.Options().MaxWallclock)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		logger.Error("gmsh exited with an error.", "exit_code", res.ExitCode, "timed_out", res.TimedOut, "stderr", strings.TrimSpace(res.Stderr))
		return nil, calcjob.Fail(calcjob.ErrorExecutableFailed.WithMessage("gmsh exited with status %d (timed out: %t).", res.ExitCode, res.TimedOut))
	}

	retrieved, err := calcjob.Retrieve(folder, workDir, info.RetrieveList)
	if err != nil {
		return nil, err
	}
	defer retrieved.Remove()

	parser := &Parser{Store: m.Store, DefaultOutputFilename: calc.Options().OutputFilename}
	result, code, err := parser.Parse(ctx, retrieved, info)
	if err != nil {
		return nil, err
	}
	if code.IsFailure() {
		return nil, calcjob.Fail(code)
	}

	names := make([]string, 0, len(result.Mesh.PhysicalNames))
	for _, pn := range result.Mesh.PhysicalNames {
		names = append(names, pn.Name)
	}
	logger.Info("Mesh stored.", "mesh_id", result.Mshfile.ID, "nodes", result.Mesh.NumNodes, "elements", result.Mesh.NumElements)

	return &Output{
		MeshID:        result.Mshfile.ID,
		Filename:      result.Filename,
		Digest:        result.Mshfile.Digest,
		Size:          result.Mshfile.Size,
		Dims:          result.Mesh.Dims(),
		NumNodes:      result.Mesh.NumNodes,
		NumElements:   result.Mesh.NumElements,
		PhysicalNames: names,
		Args:          args,
	}, nil
}
