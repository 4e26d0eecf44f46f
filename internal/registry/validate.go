// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

var ctyValueType = reflect.TypeOf(cty.Value{})

// ValidateRegistry performs a strict parity check between manifests and Go code.
// It checks both the presence of inputs and the compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, runnerType := range r.RunnerTypes() {
		def := r.runners[runnerType]
		if def.Lifecycle.OnRun == "" {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest has no lifecycle.on_run handler", runnerType))
			continue
		}
		handler, ok := r.Handlers.Get(def.Lifecycle.OnRun)
		if !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s' is not registered", runnerType, def.Lifecycle.OnRun))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares inputs, but Go handler has no input struct", runnerType))
			}
			continue
		}

		goInputs := taggedFields(handler.InputType, "bggo")

		// Check for presence mismatches
		for _, name := range sortedKeys(goInputs) {
			if _, ok := def.Inputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': Go struct has field for input '%s' which is not declared in manifest", runnerType, name))
			}
		}

		for _, name := range sortedKeys(def.Inputs) {
			inputDef := def.Inputs[name]
			goField, ok := goInputs[name]
			if !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares input '%s' which is not found in Go struct", runnerType, name))
				continue
			}

			manifestType := inputDef.Type
			if manifestType.Equals(cty.DynamicPseudoType) {
				if goField.Type != ctyValueType && goField.Type.Kind() != reflect.Interface {
					logger.Warn("Manifest for runner has input with 'type = any', which disables static type checking. Consider using a specific type like 'string', 'number', or 'bool'.", "runner", runnerType, "input", name)
				}
				continue
			}
			if goField.Type == ctyValueType {
				continue
			}

			// Infer type from the Go field
			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("runner '%s', input '%s': could not imply cty type from Go field type %s: %v", runnerType, name, goField.Type, err))
				continue
			}

			// The core type check
			if !manifestType.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("runner '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides compatible type '%s'",
					runnerType, name, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}

		errs = append(errs, validateOutputs(runnerType, def.Outputs, reflect.TypeOf(handler.Fn))...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// validateOutputs checks that a handler returning a struct exposes every
// output its manifest declares.
func validateOutputs(runnerType string, outputs map[string]model.RunnerOutputDefinition, fn reflect.Type) []string {
	if fn == nil || fn.Kind() != reflect.Func || fn.NumOut() == 0 {
		return nil
	}
	out := fn.Out(0)
	for out.Kind() == reflect.Ptr {
		out = out.Elem()
	}
	if out.Kind() != reflect.Struct || out == ctyValueType {
		return nil
	}

	goOutputs := taggedFields(out, "cty")
	var errs []string
	for _, name := range sortedKeys(outputs) {
		if _, ok := goOutputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest declares output '%s' which is not produced by Go handler", runnerType, name))
		}
	}
	return errs
}

func taggedFields(t reflect.Type, tagKey string) map[string]reflect.StructField {
	fields := make(map[string]reflect.StructField)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get(tagKey)
		tagName := strings.Split(tag, ",")[0]
		if tagName != "" && tagName != "-" {
			fields[tagName] = field
		}
	}
	return fields
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
