// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Runner, the reusable definition of a type of task,
// and the parser for `runner` manifest blocks.
//
// A Runner is to a Step what a function definition is to a call: it declares
// named inputs, named outputs and the Go handler to invoke. A grid can
// instantiate the same runner many times with different arguments, and the
// manifest lets each invocation be checked before anything runs.
package model

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Runner is the parsed form of a runner manifest.
type Runner struct {
	Type          string
	Description   string
	FSInformation *FSInfo
	Lifecycle     RunnerLifecycle
	Inputs        map[string]RunnerInputDefinition
	Outputs       map[string]RunnerOutputDefinition
}

// RunnerLifecycle maps a runner's events to Go handler names.
type RunnerLifecycle struct {
	OnRun string `hcl:"on_run,attr"`
}

// RunnerInputDefinition is one `input` block. An input is required unless
// it has a Default or is marked optional.
type RunnerInputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// RunnerOutputDefinition is one `output` block.
type RunnerOutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}

type runnerRootSchema struct {
	Runners []*hclRunner `hcl:"runner,block"`
}

type hclRunner struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

var runnerBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "lifecycle"},
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var inputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		// `type` is required, but checked by hand for a better message.
		{Name: "type"},
		{Name: "description"},
		{Name: "default"},
		{Name: "optional"},
	},
}

var outputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "description"},
	},
}

// ParseRunnerSource parses manifest source held in memory, such as a
// manifest embedded in a compiled-in module.
func ParseRunnerSource(ctx context.Context, src []byte, filename string) ([]*Runner, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	runners, diags := ParseRunnerFile(ctx, file, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return runners, nil
}

// ParseRunnerFile decodes an HCL file that contains one or more 'runner' blocks.
func ParseRunnerFile(ctx context.Context, hclFile *hcl.File, filePath string) ([]*Runner, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing runner definitions from file", "file_path", filePath)

	var allDiags hcl.Diagnostics
	if hclFile == nil {
		return nil, hcl.Diagnostics{{Severity: hcl.DiagError, Summary: "HCL file is nil"}}
	}

	schema := &runnerRootSchema{}
	diags := gohcl.DecodeBody(hclFile.Body, nil, schema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	runners := make([]*Runner, 0, len(schema.Runners))
	for _, parsedRunner := range schema.Runners {
		bodyContent, contentDiags := parsedRunner.Body.Content(runnerBodySchema)
		allDiags = append(allDiags, contentDiags...)
		if contentDiags.HasErrors() {
			continue // Skip this runner but continue parsing others
		}

		definition := &Runner{
			Type:          parsedRunner.Type,
			FSInformation: NewFSInfo(filePath),
		}

		if attr, exists := bodyContent.Attributes["description"]; exists {
			allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &definition.Description)...)
		}

		var partDiags hcl.Diagnostics
		definition.Lifecycle, partDiags = parseRunnerLifecycle(bodyContent.Blocks)
		allDiags = append(allDiags, partDiags...)

		definition.Inputs, partDiags = parseRunnerInputs(bodyContent.Blocks)
		allDiags = append(allDiags, partDiags...)

		definition.Outputs, partDiags = parseRunnerOutputs(bodyContent.Blocks)
		allDiags = append(allDiags, partDiags...)

		runners = append(runners, definition)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}

	logger.Debug("Successfully parsed runner definitions", "count", len(runners))
	return runners, nil
}

func parseRunnerLifecycle(blocks hcl.Blocks) (RunnerLifecycle, hcl.Diagnostics) {
	var lifecycle RunnerLifecycle

	block, diags := hclutil.FindUniqueBlock(blocks, "lifecycle")
	if diags.HasErrors() || block == nil {
		// An absent lifecycle is caught by registry validation.
		return lifecycle, diags
	}

	diags = append(diags, gohcl.DecodeBody(block.Body, nil, &lifecycle)...)
	return lifecycle, diags
}

func parseRunnerInputs(blocks hcl.Blocks) (map[string]RunnerInputDefinition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	inputs := make(map[string]RunnerInputDefinition)

	for _, block := range blocks.OfType("input") {
		inputName := block.Labels[0]

		if _, exists := inputs[inputName]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate input definition",
				Detail:   fmt.Sprintf("An input named '%s' has already been defined.", inputName),
				Subject:  &block.DefRange,
			})
			continue
		}

		bodyContent, contentDiags := block.Body.Content(inputBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		typeAttr, exists := bodyContent.Attributes["type"]
		if !exists {
			missingItemRange := block.Body.MissingItemRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing 'type' attribute",
				Detail:   "The 'type' attribute is required for all input blocks.",
				Subject:  &missingItemRange,
			})
			continue
		}

		ctyType, typeDiags := hclutil.TypeFromExpr(typeAttr.Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		var description string
		if descAttr, exists := bodyContent.Attributes["description"]; exists {
			diags = append(diags, gohcl.DecodeExpression(descAttr.Expr, nil, &description)...)
		}

		var defaultValue *cty.Value
		if defaultAttr, exists := bodyContent.Attributes["default"]; exists {
			// Defaults must be literal values.
			val, valDiags := defaultAttr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			if !val.IsNull() {
				converted, err := convert.Convert(val, ctyType)
				if err != nil {
					diags = append(diags, &hcl.Diagnostic{
						Severity: hcl.DiagError,
						Summary:  "Invalid default value type",
						Detail:   fmt.Sprintf("The default value for '%s' is not compatible with its type, '%s'.", inputName, ctyType.FriendlyName()),
						Subject:  defaultAttr.Expr.Range().Ptr(),
					})
					continue
				}
				defaultValue = &converted
			}
		}

		optional := defaultValue != nil
		if optAttr, exists := bodyContent.Attributes["optional"]; exists {
			var flag bool
			optDiags := gohcl.DecodeExpression(optAttr.Expr, nil, &flag)
			diags = append(diags, optDiags...)
			optional = optional || flag
		}

		inputs[inputName] = RunnerInputDefinition{
			Name:        inputName,
			Type:        ctyType,
			Description: description,
			Default:     defaultValue,
			Optional:    optional,
		}
	}

	return inputs, diags
}

func parseRunnerOutputs(blocks hcl.Blocks) (map[string]RunnerOutputDefinition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	outputs := make(map[string]RunnerOutputDefinition)

	for _, block := range blocks.OfType("output") {
		outputName := block.Labels[0]

		if _, exists := outputs[outputName]; exists {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate output definition",
				Detail:   fmt.Sprintf("An output named '%s' has already been defined.", outputName),
				Subject:  &block.DefRange,
			})
			continue
		}

		bodyContent, contentDiags := block.Body.Content(outputBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		ctyType, typeDiags := hclutil.TypeFromExpr(bodyContent.Attributes["type"].Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		var description string
		if descAttr, exists := bodyContent.Attributes["description"]; exists {
			diags = append(diags, gohcl.DecodeExpression(descAttr.Expr, nil, &description)...)
		}

		outputs[outputName] = RunnerOutputDefinition{
			Name:        outputName,
			Type:        ctyType,
			Description: description,
		}
	}

	return outputs, diags
}
