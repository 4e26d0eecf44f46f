// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of the meshgrid HCL
// configuration. It parses raw HCL files into a strongly-typed, in-memory
// model of the user's definitions.
//
// # Core Concepts
//
//   - Runner: the reusable "template" of a task, read from a manifest. It
//     declares the inputs a step must provide, the outputs it produces, and
//     the Go handler (lifecycle) that does the work. The gmsh runner is one.
//
//   - Step: an invocation of a Runner inside a grid, with its own
//     `arguments` and `depends_on`.
//
//   - Grid: every step found in the grid path, across all files.
//
//   - FSInfo: the source file of a Runner or Step, used in error messages.
//
// Argument values stay as raw hcl.Expression values here. They are only
// evaluated by the executor, once the outputs of the steps they reference
// are known.
package model
