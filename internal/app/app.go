// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
	"github.com/vk/meshgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	store      *artifact.Store
	grid       *model.Grid
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Without explicit modules the core modules are registered.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	store, err := artifact.NewStore(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	app := &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
		store:  store,
	}

	if len(modules) == 0 {
		modules = coreModules(cfg, store, outW)
	}
	if err := app.LoadModules(modules...); err != nil {
		return nil, err
	}
	return app, nil
}

// LoadModules registers the Go modules, reads any extra manifests from the
// modules path and validates that both sides agree.
func (app *App) LoadModules(modules ...registry.Module) error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Loading modules...", "modules_path", app.config.ModulesPath)

	reg := registry.New()
	if err := reg.RegisterModules(app.ctx, modules...); err != nil {
		return err
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if app.config.ModulesPath != "" {
		if err := reg.LoadRunnersRecursively(app.ctx, app.config.ModulesPath); err != nil {
			return fmt.Errorf("failed to load modules: %w", err)
		}
	}

	if err := reg.ValidateRegistry(app.ctx); err != nil {
		return err
	}
	logger.Debug("Registry validation passed.")

	app.registry = reg
	return nil
}

// LoadGrids parses every grid file under the configured grid path.
func (app *App) LoadGrids() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Loading grids...", "grid_path", app.config.GridPath)

	grid, err := model.LoadGridsRecursively(app.ctx, app.config.GridPath)
	if err != nil {
		return fmt.Errorf("failed to load grid: %w", err)
	}

	app.grid = grid
	logger.Info("Grids loaded successfully.", "steps_found", len(grid.Steps))

	return nil
}

// Registry returns the application's registry. This is primarily for testing.
func (app *App) Registry() *registry.Registry {
	return app.registry
}

// Store returns the artifact store meshes are written to.
func (app *App) Store() *artifact.Store {
	return app.store
}
