// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"

	"github.com/vk/meshgrid/internal/convert"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/executor"
)

// Run loads the grid and executes it. The report is returned even when
// some steps fail, so callers can show what happened.
func (app *App) Run(ctx context.Context) (*executor.Report, error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	app.logger.Debug("App.Run method started.")

	app.healthCheckServer()
	defer app.closeHealthCheckServer()

	if err := app.LoadGrids(); err != nil {
		return nil, err
	}

	app.logger.Info("Step handlers registered:", "count", len(app.registry.Handlers.Names()), "keys", app.registry.Handlers.Names())

	if len(app.grid.Steps) == 0 {
		app.logger.Warn("No steps found in grid, execution not required.")
		return &executor.Report{}, nil
	}

	app.logger.Info("🚀 Starting execution...")
	exec := executor.New(app.grid, app.registry, convert.NewConverter())
	report, err := exec.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("execution failed: %w", err)
	}
	app.logger.Info("🏁 Execution finished.")

	app.logger.Debug("App.Run method finished.")
	return report, nil
}
