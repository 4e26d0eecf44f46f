// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package handlers stores the compiled Go side of runner lifecycles, keyed
// by the handler name a manifest's `on_run` refers to.
package handlers

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
)

// Handlers holds all the registered handlers
type Handlers struct {
	all map[string]*RegisteredHandler
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]*RegisteredHandler),
	}
}

// RegisteredHandler holds the compiled Go parts of a runner's lifecycle function.
//
// Fn must have the shape
//
//	func(ctx context.Context, deps *D, input *I) (O, error)
type RegisteredHandler struct {
	Input     func() any
	InputType reflect.Type
	Deps      func() any
	Fn        any
}

// RegisterHandler registers a Go function for a runner's lifecycle event.
func (r *Handlers) RegisterHandler(name string, handler *RegisteredHandler) {
	if _, exists := r.all[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	if fn := reflect.TypeOf(handler.Fn); fn == nil || fn.Kind() != reflect.Func || fn.NumIn() != 3 || fn.NumOut() != 2 {
		panic(fmt.Sprintf("runner handler '%s' must be func(ctx, deps, input) (output, error)", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.all[name] = handler
}

// Get returns the handler registered under name.
func (r *Handlers) Get(name string) (*RegisteredHandler, bool) {
	h, ok := r.all[name]
	return h, ok
}

// Names lists the registered handler names in sorted order.
func (r *Handlers) Names() []string {
	names := make([]string, 0, len(r.all))
	for name := range r.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
