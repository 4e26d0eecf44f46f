// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file prepares a gmsh calculation: it decides which files go into the
// execution folder, what the command line is, and which file is expected back.
package gmsh

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/meshgrid/internal/calcjob"
)

const (
	DefaultOutputFilename = "mesh.msh"
	DefaultExecutable     = "gmsh"
)

// Options are the execution settings of a calculation, as opposed to the
// options passed to gmsh itself.
type Options struct {
	OutputFilename string
	Executable     string
	WithMPI        bool
	// MaxWallclock bounds the executable run; zero means no limit.
	MaxWallclock time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutputFilename == "" {
		o.OutputFilename = DefaultOutputFilename
	}
	if o.Executable == "" {
		o.Executable = DefaultExecutable
	}
	return o
}

// Calculation turns a geometry file and a parameter set into a CalcInfo.
type Calculation struct {
	geofile    string
	parameters *Parameters
	options    Options
}

// NewCalculation checks the inputs of a calculation. geofile is a path on
// the local disk.
func NewCalculation(geofile string, parameters *Parameters, options Options) (*Calculation, error) {
	if geofile == "" {
		return nil, errors.New("gmsh: geofile is required")
	}
	if parameters == nil {
		return nil, errors.New("gmsh: parameters are required")
	}
	options = options.withDefaults()
	if filepath.Base(options.OutputFilename) != options.OutputFilename {
		return nil, fmt.Errorf("gmsh: output filename '%s' must not contain a directory", options.OutputFilename)
	}
	if out, ok := parameters.Output(); ok && (out == "" || filepath.Base(out) != out) {
		return nil, fmt.Errorf("gmsh: output option '%s' must be a plain file name", out)
	}
	return &Calculation{geofile: geofile, parameters: parameters, options: options}, nil
}

// GeofileName is the name the geometry file gets inside the folder.
func (c *Calculation) GeofileName() string {
	return filepath.Base(c.geofile)
}

// OutputFilename is the file the calculation expects gmsh to write: the
// explicit `o` option when given, otherwise Options.OutputFilename.
func (c *Calculation) OutputFilename() string {
	if out, ok := c.parameters.Output(); ok {
		return out
	}
	return c.options.OutputFilename
}

// Options returns the effective execution settings.
func (c *Calculation) Options() Options {
	return c.options
}

// PrepareForSubmission builds the CalcInfo for folder. Without an explicit
// `o` option, `-o <OutputFilename>` is added so gmsh writes where the parser
// looks instead of next to the geometry under its own name.
func (c *Calculation) PrepareForSubmission(folder *calcjob.Folder) (*calcjob.CalcInfo, error) {
	if folder == nil {
		return nil, errors.New("gmsh: folder is required")
	}
	params := c.parameters
	if !params.IsSet(KeyOutput) {
		params = params.WithOutput(c.options.OutputFilename)
	}

	code := calcjob.CodeInfo{
		Executable:    c.options.Executable,
		CmdlineParams: params.CmdlineParams(c.GeofileName()),
		WithMPI:       c.options.WithMPI,
	}
	return &calcjob.CalcInfo{
		CodesInfo: []calcjob.CodeInfo{code},
		LocalCopyList: []calcjob.CopyItem{
			{Source: c.geofile, Target: c.GeofileName()},
		},
		RetrieveList: []string{c.OutputFilename()},
	}, nil
}

// OutputFilenameFromArgs returns the value of the "-o" option in args, as
// produced by CmdlineParams, or def when there is none. args[0] is the
// geometry file. Only option positions are inspected, so a value such as
// `format = "-o"` is not mistaken for the output option.
func OutputFilenameFromArgs(args []string, def string) string {
	for i := 1; i < len(args); i++ {
		name, isOpt := strings.CutPrefix(args[i], "-")
		if !isOpt {
			continue
		}
		opt, ok := lookupOption(name)
		if !ok || opt.Kind == KindFlag {
			continue
		}
		if i+1 >= len(args) {
			break
		}
		if opt.Key == KeyOutput {
			return args[i+1]
		}
		i++
	}
	return def
}
