// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package print provides the `print` runner, which writes a value such as a
// mesh summary to the run's output stream.
package print

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed values. Nil means os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Input defines the arguments for the print runner.
type Input struct {
	Value cty.Value `bggo:"input"`
	Label string    `bggo:"label"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Handlers.RegisterHandler("OnRunPrint", &handlers.RegisteredHandler{
		Input:     func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Deps:      func() any { return new(Deps) },
		Fn:        m.OnRunPrint,
	})
}

// Manifest returns the embedded runner manifest.
func (m *Module) Manifest() (string, []byte) {
	return "modules/print/manifest.hcl", manifest
}

// OnRunPrint is the handler for the 'print' runner's on_run lifecycle event.
// Objects and maps are printed one attribute per line, sorted by key.
func (m *Module) OnRunPrint(ctx context.Context, _ *Deps, input *Input) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing input", "label", input.Label)

	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	if input.Label != "" {
		fmt.Fprintf(out, "%s:\n", input.Label)
	}

	val := input.Value
	if val.IsNull() {
		fmt.Fprintln(out, "      (null)")
		return nil, nil
	}

	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		fmt.Fprintf(out, "      %s\n", render(val))
		return nil, nil
	}

	attrs := val.AsValueMap()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(out, "      %s = %s\n", k, render(attrs[k]))
	}

	return nil, nil
}

// render formats a value as HCL source.
func render(v cty.Value) string {
	if !v.IsWhollyKnown() {
		return "(known after run)"
	}
	return string(hclwrite.TokensForValue(v).Bytes())
}
