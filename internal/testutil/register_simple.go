// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/registry"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single handler and, optionally, an in-memory manifest.
type SimpleModule struct {
	HandlerName string
	Handler     *handlers.RegisteredHandler

	ManifestName string
	ManifestHCL  string
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.HandlerName != "" && m.Handler != nil {
		r.Handlers.RegisterHandler(m.HandlerName, m.Handler)
	}
}

// Manifest implements registry.ManifestProvider. An empty manifest
// declares no runners.
func (m *SimpleModule) Manifest() (string, []byte) {
	name := m.ManifestName
	if name == "" {
		name = "testutil/manifest.hcl"
	}
	return name, []byte(m.ManifestHCL)
}
