// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// buildEvalContext creates the HCL evaluation context for a step. It
// exposes
//
//	step.<runner>.<name>.output   outputs of completed steps
//	path.grid                     absolute directory of the step's file
//	path.cwd                      working directory of the process
func (e *Executor) buildEvalContext(ctx context.Context, step *model.Step, report *Report) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building HCL evaluation context.", "step", step.ID())

	stepOutputsByRunner := make(map[string]map[string]cty.Value)
	for _, rec := range report.Steps {
		if rec.Status != StatusDone {
			continue
		}
		output := rec.Output
		if output.IsNull() {
			output = cty.NullVal(cty.DynamicPseudoType)
		}
		runnerType := rec.step.RunnerType
		if _, ok := stepOutputsByRunner[runnerType]; !ok {
			stepOutputsByRunner[runnerType] = make(map[string]cty.Value)
		}
		stepOutputsByRunner[runnerType][rec.step.Name] = cty.ObjectVal(map[string]cty.Value{
			"output": output,
		})
	}

	finalStepOutputs := make(map[string]cty.Value, len(stepOutputsByRunner))
	for runnerType, instancesMap := range stepOutputsByRunner {
		finalStepOutputs[runnerType] = cty.ObjectVal(instancesMap)
	}

	gridDir, err := filepath.Abs(step.FSInformation.Dir())
	if err != nil {
		gridDir = step.FSInformation.Dir()
	}
	cwd, err := filepath.Abs(".")
	if err != nil {
		cwd = "."
	}

	vars := map[string]cty.Value{
		"step": cty.ObjectVal(finalStepOutputs),
		"path": cty.ObjectVal(map[string]cty.Value{
			"grid": cty.StringVal(gridDir),
			"cwd":  cty.StringVal(cwd),
		}),
	}
	logger.Debug("Finished building HCL evaluation context.", "step", step.ID(), "completed_runners", len(finalStepOutputs))
	return &hcl.EvalContext{Variables: vars}
}
