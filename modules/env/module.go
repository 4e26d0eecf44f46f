// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package env provides the `env` runner.
package env

import (
	"context"
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/registry"
)

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ lists the variables as KEY=VALUE pairs. Nil means os.Environ.
	Environ func() []string
}

// Input defines the arguments for the env runner.
type Input struct {
	Prefix string `bggo:"prefix"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output defines the data structure returned by the runner.
type Output struct {
	Vars map[string]string `cty:"vars"`
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Handlers.RegisterHandler("OnRunEnv", &handlers.RegisteredHandler{
		Input:     func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Deps:      func() any { return new(Deps) },
		Fn:        m.OnRunEnv,
	})
}

// Manifest returns the embedded runner manifest.
func (m *Module) Manifest() (string, []byte) {
	return "modules/env/manifest.hcl", manifest
}

// OnRunEnv is the handler for the 'env' runner.
func (m *Module) OnRunEnv(ctx context.Context, _ *Deps, input *Input) (*Output, error) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}

	vars := make(map[string]string)
	for _, e := range environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(key, input.Prefix) {
			continue
		}
		vars[key] = value
	}

	ctxlog.FromContext(ctx).Debug("Collected environment variables", "prefix", input.Prefix, "count", len(vars))
	return &Output{Vars: vars}, nil
}
