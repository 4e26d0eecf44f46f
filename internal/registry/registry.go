// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/fsutil"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/model"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// ManifestProvider is implemented by modules that ship their runner
// manifest inside the binary.
type ManifestProvider interface {
	Manifest() (filename string, src []byte)
}

// Registry holds all the registered handlers and runner definitions for a
// single application instance.
type Registry struct {
	Handlers *handlers.Handlers
	runners  map[string]*model.Runner
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Handlers: handlers.New(),
		runners:  make(map[string]*model.Runner),
	}
}

// Runner returns the definition for runnerType.
func (r *Registry) Runner(runnerType string) (*model.Runner, bool) {
	rn, ok := r.runners[runnerType]
	return rn, ok
}

// RunnerTypes lists the known runner types in sorted order.
func (r *Registry) RunnerTypes() []string {
	types := make([]string, 0, len(r.runners))
	for t := range r.runners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// AddRunners adds parsed definitions. A runner type may only be defined once.
func (r *Registry) AddRunners(runners ...*model.Runner) error {
	for _, rn := range runners {
		if prev, exists := r.runners[rn.Type]; exists {
			return fmt.Errorf("runner '%s' defined twice: in %s and %s", rn.Type, prev.FSInformation.FilePath, rn.FSInformation.FilePath)
		}
		r.runners[rn.Type] = rn
	}
	return nil
}

// RegisterModules registers each module's handlers and, when the module
// embeds one, its manifest.
func (r *Registry) RegisterModules(ctx context.Context, modules ...Module) error {
	logger := ctxlog.FromContext(ctx)
	for _, m := range modules {
		m.Register(r)

		mp, ok := m.(ManifestProvider)
		if !ok {
			continue
		}
		filename, src := mp.Manifest()
		runners, err := model.ParseRunnerSource(ctx, src, filename)
		if err != nil {
			return fmt.Errorf("failed to process embedded manifest %s: %w", filename, err)
		}
		if err := r.AddRunners(runners...); err != nil {
			return err
		}
		logger.Debug("Loaded embedded manifest.", "file", filename, "runners", len(runners))
	}
	return nil
}

// LoadRunnersRecursively parses every .hcl manifest under modulesPath.
func (r *Registry) LoadRunnersRecursively(ctx context.Context, modulesPath string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading definitions from modules path...", "path", modulesPath)

	filePaths, err := fsutil.FindFilesByExtension(modulesPath, ".hcl")
	if err != nil {
		logger.Error("Failed to walk modules directory", "path", modulesPath, "error", err)
		return err
	}

	if len(filePaths) == 0 {
		logger.Warn("No .hcl module files found in path", "path", modulesPath)
		return nil
	}

	logger.Debug("Found HCL files to load", "files", filePaths)

	parser := hclparse.NewParser()
	loaded := 0
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}

		runners, diags := model.ParseRunnerFile(ctx, hclFile, filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to process runner definition in %s: %w", filePath, diags)
		}
		if err := r.AddRunners(runners...); err != nil {
			return err
		}
		loaded += len(runners)
		logger.Debug("Successfully loaded definitions from HCL file", "file", filePath)
	}

	logger.Info("Registry loaded successfully.", "runner_definitions_loaded", loaded)
	return nil
}
