// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Grid, the root container for every step loaded from
// a user's .hcl files. Steps may be spread over many files and directories,
// and references between them are resolved over the whole Grid.
package model

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/fsutil"
)

// Grid represents the user's execution graph definition.
type Grid struct {
	Steps []*Step
}

// NewGrid creates and returns an initialized Grid.
func NewGrid() *Grid {
	return &Grid{
		Steps: []*Step{},
	}
}

// Step returns the step with the given ID, or nil.
func (g *Grid) Step(id string) *Step {
	for _, s := range g.Steps {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// hclGridFile represents the top-level structure of a grid file for decoding.
type hclGridFile struct {
	Steps []*hclStep `hcl:"step,block"`
}

// ParseGridSource parses grid source held in memory.
func ParseGridSource(src []byte, filename string) ([]*Step, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return stepsFromFile(file, filename)
}

// newGridFromHCL parses a single HCL file and returns the Steps found within it.
func newGridFromHCL(filePath string, parser *hclparse.Parser) ([]*Step, error) {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}
	return stepsFromFile(hclFile, filePath)
}

func stepsFromFile(hclFile *hcl.File, filePath string) ([]*Step, error) {
	var parsedFile hclGridFile
	diags := gohcl.DecodeBody(hclFile.Body, nil, &parsedFile)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}

	steps := make([]*Step, 0, len(parsedFile.Steps))
	for _, parsedStep := range parsedFile.Steps {
		step, stepDiags := NewStepFromHCL(parsedStep, filePath)
		if stepDiags.HasErrors() {
			return nil, fmt.Errorf("error parsing step in file %s: %w", filePath, stepDiags)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// LoadGridsRecursively finds and parses all HCL files in a given path into a
// Grid model. The path may also name a single file.
func LoadGridsRecursively(ctx context.Context, gridPath string) (*Grid, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading grid from path", "path", gridPath)

	files, err := fsutil.FindFilesByExtension(gridPath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find grid files in %s: %w", gridPath, err)
	}

	grid := NewGrid()
	if len(files) == 0 {
		logger.Warn("No .hcl grid files found in path, returning empty grid", "path", gridPath)
		return grid, nil
	}

	parser := hclparse.NewParser()
	seen := make(map[string]*Step)
	for _, file := range files {
		steps, err := newGridFromHCL(file, parser)
		if err != nil {
			return nil, err
		}
		for _, s := range steps {
			if prev, dup := seen[s.ID()]; dup {
				return nil, fmt.Errorf("duplicate step %s in %s (first defined in %s)", s.ID(), file, prev.FSInformation.FilePath)
			}
			seen[s.ID()] = s
		}
		grid.Steps = append(grid.Steps, steps...)
	}

	return grid, nil
}
