// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file provides the parser for a step's `arguments` block. Its contents
// are defined by the Runner being used, so every attribute is kept as a raw
// expression and checked against the runner's inputs when it is decoded.
package model

import (
	"github.com/hashicorp/hcl/v2"
)

// parseArguments parses the attributes from a single "arguments" block.
// It returns a map of the argument names to their raw HCL expressions.
func parseArguments(block *hcl.Block) (map[string]hcl.Expression, hcl.Diagnostics) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	args := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		args[name] = attr.Expr
	}

	return args, diags
}
