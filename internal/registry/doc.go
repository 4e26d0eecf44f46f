// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry provides the central "glue" for the module system.
//
// The Registry stores the mapping between the handler names used in
// manifests (e.g. "OnRunGmsh") and the compiled Go functions behind them,
// together with the parsed runner manifests themselves. Manifests come from
// two places: those embedded in compiled-in modules, and any extra .hcl
// files found under the modules path.
//
// During application startup the registry is populated and then validated
// so that the Go code and the manifests are known to agree before a grid
// runs.
package registry
