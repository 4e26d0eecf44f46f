// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/ctxlog"
)

// Result is what a successful parse produces.
type Result struct {
	Filename string
	Mshfile  *artifact.Artifact
	Mesh     *Mesh
}

// Parser reads the retrieved folder of a finished gmsh calculation.
type Parser struct {
	Store *artifact.Store
	// DefaultOutputFilename is used when the command line has no -o.
	DefaultOutputFilename string
}

// Parse checks that the expected mesh was retrieved, stores it and reads
// its summary. Missing or unreadable output is reported as a failure exit
// code; the error return is reserved for storage problems.
func (p *Parser) Parse(ctx context.Context, retrieved *calcjob.Folder, info *calcjob.CalcInfo) (*Result, calcjob.ExitCode, error) {
	logger := ctxlog.FromContext(ctx)
	if p.Store == nil {
		return nil, calcjob.ExitOK, errors.New("gmsh parser: artifact store is required")
	}
	if info == nil || len(info.CodesInfo) == 0 {
		return nil, calcjob.ExitOK, calcjob.ErrNoCode
	}

	def := p.DefaultOutputFilename
	if def == "" {
		def = DefaultOutputFilename
	}
	outputFilename := OutputFilenameFromArgs(info.CodesInfo[0].CmdlineParams, def)

	if !retrieved.Exists(outputFilename) {
		found, err := retrieved.List()
		if err != nil {
			return nil, calcjob.ExitOK, err
		}
		logger.Error("Expected output file was not retrieved.", "found", found, "expected", []string{outputFilename})
		code := calcjob.ErrorMissingOutputFiles.WithMessage("Found files %q, expected to find %q.", found, []string{outputFilename})
		return nil, code, nil
	}

	logger.Info("Parsing output file.", "file", outputFilename)
	f, err := retrieved.Open(outputFilename)
	if err != nil {
		return nil, calcjob.ExitOK, err
	}
	mesh, mshErr := ReadMSH(f)
	f.Close()
	if mshErr != nil {
		logger.Error("Output file is not a valid gmsh mesh.", "file", outputFilename, "error", mshErr)
		return nil, calcjob.ErrorInvalidOutputFile.WithMessage("%s: %v", outputFilename, mshErr), nil
	}

	f, err = retrieved.Open(outputFilename)
	if err != nil {
		return nil, calcjob.ExitOK, err
	}
	defer f.Close()
	art, err := p.Store.Put(ctx, outputFilename, f)
	if err != nil {
		return nil, calcjob.ExitOK, fmt.Errorf("failed to store mesh: %w", err)
	}

	return &Result{Filename: outputFilename, Mshfile: art, Mesh: mesh}, calcjob.ExitOK, nil
}
