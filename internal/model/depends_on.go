// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the parsing and validation logic for the `depends_on`
// attribute. `depends_on` orders steps that share no data, e.g. a cleanup
// step that must run after a mesh has been stored.
package model

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// parseDependsOn finds the "depends_on" attribute and returns the step
// references it lists. Each element must be a bare reference of the form
// step.<runner>.<name>.
func parseDependsOn(attrs hcl.Attributes) ([]hcl.Traversal, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	dependsOnAttr, exists := attrs["depends_on"]
	if !exists {
		return nil, diags
	}
	expr := dependsOnAttr.Expr

	tuple, isTuple := expr.(*hclsyntax.TupleConsExpr)
	if !isTuple {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid depends_on value",
			Detail:   "The 'depends_on' attribute must be a list of step references.",
			Subject:  expr.Range().Ptr(),
		})
		return nil, diags
	}

	traversals := make([]hcl.Traversal, 0, len(tuple.Exprs))
	for _, elem := range tuple.Exprs {
		traversal, travDiags := hcl.AbsTraversalForExpr(elem)
		if travDiags.HasErrors() || len(traversal) < 3 || traversal.RootName() != "step" {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid depends_on reference",
				Detail:   "Each depends_on entry must reference a step, e.g. step.gmsh.square.",
				Subject:  elem.Range().Ptr(),
			})
			continue
		}
		traversals = append(traversals, traversal)
	}

	return traversals, diags
}
