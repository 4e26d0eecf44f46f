// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/meshgrid/internal/convert"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// runStep decodes a step's arguments, calls its handler and converts the
// handler's output into a cty.Value.
func (e *Executor) runStep(ctx context.Context, step *model.Step, report *Report) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", step.ID())
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("▶️ Starting step")

	runnerDef, ok := e.registry.Runner(step.RunnerType)
	if !ok {
		return cty.NilVal, fmt.Errorf("unknown runner type '%s'", step.RunnerType)
	}
	handlerName := runnerDef.Lifecycle.OnRun
	registeredHandler, ok := e.registry.Handlers.Get(handlerName)
	if !ok {
		return cty.NilVal, fmt.Errorf("handler '%s' not registered", handlerName)
	}

	evalCtx := e.buildEvalContext(ctx, step, report)

	var inputStruct any
	if registeredHandler.Input != nil {
		inputStruct = registeredHandler.Input()
	}
	if inputStruct != nil {
		err := e.converter.DecodeBody(ctx, inputStruct, step.Arguments, runnerDef.Inputs, evalCtx)
		if err != nil {
			return cty.NilVal, fmt.Errorf("failed to decode arguments for step %s: %w", step.ID(), err)
		}
	} else if len(step.Arguments) > 0 {
		return cty.NilVal, fmt.Errorf("step %s: runner '%s' takes no arguments", step.ID(), step.RunnerType)
	}
	logger.Debug("Step input:", "data", convert.FormatValueForLogs(inputStruct))

	var depsStruct any
	if registeredHandler.Deps != nil {
		depsStruct = registeredHandler.Deps()
	}

	logger.Debug("Calling step run handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(registeredHandler.Fn)
	fnType := handlerFunc.Type()
	callArgs := []reflect.Value{reflect.ValueOf(ctx), argValue(fnType.In(1), depsStruct), argValue(fnType.In(2), inputStruct)}

	results := handlerFunc.Call(callArgs)
	nativeOutput, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return cty.NilVal, errResult.(error)
	}
	if out := results[0]; (out.Kind() == reflect.Ptr || out.Kind() == reflect.Interface) && out.IsNil() {
		nativeOutput = nil
	}

	ctyOutput, err := e.converter.ToCtyValue(nativeOutput)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to convert handler output to cty.Value for step %s: %w", step.ID(), err)
	}

	logger.Info("✅ Finished step")
	return ctyOutput, nil
}

func argValue(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
