// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Step structure, the atomic unit of work within a
// Grid: a single, configured invocation of a Runner.
//
// Argument values are kept as raw hcl.Expression values so that a step can
// consume the output of another step, e.g.
//
//	step "print" "summary" {
//	  arguments {
//	    input = step.gmsh.square.output
//	  }
//	}
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/meshgrid/internal/hclutil"
)

// Step is the format-agnostic representation of a `step` block.
type Step struct {
	RunnerType    string
	Name          string
	FSInformation *FSInfo

	Description string
	Arguments   map[string]hcl.Expression

	// DependsOn holds the explicit `depends_on` references. Implicit
	// dependencies come from traversals inside Arguments.
	DependsOn []hcl.Traversal
}

// ID is the address other steps use to refer to this one.
func (s *Step) ID() string {
	return fmt.Sprintf("step.%s.%s", s.RunnerType, s.Name)
}

// hclStep represents a single 'step' block for initial decoding from HCL.
type hclStep struct {
	Type string   `hcl:"type,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var stepBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "depends_on"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "arguments"},
	},
}

// NewStepFromHCL creates a new Step from a parsed HCL step block.
func NewStepFromHCL(parsedStep *hclStep, filePath string) (*Step, hcl.Diagnostics) {
	step := &Step{
		RunnerType:    parsedStep.Type,
		Name:          parsedStep.Name,
		FSInformation: NewFSInfo(filePath),
		Arguments:     map[string]hcl.Expression{},
	}

	var allDiags hcl.Diagnostics

	bodyContent, contentDiags := parsedStep.Body.Content(stepBodySchema)
	allDiags = append(allDiags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, allDiags
	}

	if attr, exists := bodyContent.Attributes["description"]; exists {
		allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &step.Description)...)
	}

	var depDiags hcl.Diagnostics
	step.DependsOn, depDiags = parseDependsOn(bodyContent.Attributes)
	allDiags = append(allDiags, depDiags...)

	if argBlock, diags := hclutil.FindUniqueBlock(bodyContent.Blocks, "arguments"); diags.HasErrors() {
		allDiags = append(allDiags, diags...)
	} else if argBlock != nil {
		var argDiags hcl.Diagnostics
		step.Arguments, argDiags = parseArguments(argBlock)
		allDiags = append(allDiags, argDiags...)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return step, allDiags
}
