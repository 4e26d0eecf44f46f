// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package hclutil holds small helpers over hashicorp/hcl shared by the
// manifest and grid parsers.
package hclutil

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// FindUniqueBlock searches a slice of blocks for all blocks of a given name.
// It returns a diagnostic error if more than one block of that name is found.
// If no block is found, it returns nil.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks.OfType(name) {
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Duplicate %q block", name),
				Detail:   fmt.Sprintf("Only one %q block is allowed.", name),
				Subject:  &block.DefRange,
			})
			continue
		}
		found = block
	}

	return found, diags
}

// TraversalKey generates a stable, canonical string for an hcl.Traversal,
// e.g. `step.gmsh.square.output`.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// TypeFromExpr converts a type expression such as `string`, `number`,
// `list(string)` or `any` into a cty.Type.
func TypeFromExpr(expr hcl.Expression) (cty.Type, hcl.Diagnostics) {
	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		// Replace the generic typeexpr message with one naming the keywords.
		return cty.NilType, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid type specification",
			Detail:   fmt.Sprintf("%s Supported types are: string, number, bool, any, list(...), map(...), object({...}).", diags[0].Detail),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return ty, nil
}
