// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package executor runs the steps of a Grid in dependency order.
//
// Steps run one at a time. A step that fails, either with an error or with
// a failure exit code from its handler, is recorded; every step that
// depends on it is skipped, and independent steps still run.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/convert"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
	"github.com/vk/meshgrid/internal/registry"
)

// Executor orchestrates the execution of one grid.
type Executor struct {
	grid      *model.Grid
	registry  *registry.Registry
	converter *convert.Converter
}

// New creates an executor for grid. The registry must already be validated.
func New(grid *model.Grid, reg *registry.Registry, converter *convert.Converter) *Executor {
	if converter == nil {
		converter = convert.NewConverter()
	}
	return &Executor{
		grid:      grid,
		registry:  reg,
		converter: converter,
	}
}

// Run executes every step of the grid and returns a report of what
// happened. The error lists the steps that did not succeed.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	plan, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Execution plan ready.", "steps", len(plan.Order))

	report := newReport(plan.Order)
	for _, step := range plan.Order {
		rec := report.Record(step.ID())

		if ctx.Err() != nil {
			rec.Status = StatusSkipped
			rec.Err = ctx.Err()
			continue
		}

		if blocker := report.firstUnsuccessful(plan.Deps[step.ID()]); blocker != nil {
			rec.Status = StatusSkipped
			rec.Err = fmt.Errorf("dependency %s %s", blocker.ID, blocker.Status)
			logger.Warn("⏭️ Skipping step", "step", step.ID(), "dependency", blocker.ID, "dependency_status", blocker.Status.String())
			continue
		}

		start := time.Now()
		output, err := e.runStep(ctx, step, report)
		rec.Duration = time.Since(start)

		var failed *calcjob.FailedError
		switch {
		case errors.As(err, &failed):
			rec.Status = StatusFailed
			rec.ExitCode = failed.Code
			rec.Err = err
			logger.Error("❌ Step finished with a failure exit code", "step", step.ID(), "exit_status", failed.Code.Status, "exit_label", failed.Code.Label, "message", failed.Code.Message)
		case err != nil:
			rec.Status = StatusFailed
			rec.Err = err
			logger.Error("❌ Step failed", "step", step.ID(), "error", err)
		default:
			rec.Status = StatusDone
			rec.Output = output
		}
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}
	if failed := report.Unsuccessful(); len(failed) > 0 {
		ids := make([]string, 0, len(failed))
		for _, rec := range failed {
			ids = append(ids, fmt.Sprintf("%s (%s)", rec.ID, rec.Status))
		}
		return report, fmt.Errorf("%d step(s) did not succeed: %s", len(failed), strings.Join(ids, ", "))
	}
	return report, nil
}
