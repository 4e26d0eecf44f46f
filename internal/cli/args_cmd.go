// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/meshgrid/modules/gmsh"
	"gopkg.in/yaml.v3"
)

func argsCmd() *cobra.Command {
	var optionsFile string
	var sets []string
	var withOutput bool

	cmd := &cobra.Command{
		Use:   "args GEOFILE",
		Short: "Print the gmsh command line for an option set",
		Long: `Translate an option set into gmsh command line arguments, one per line.

Options come from --options (a YAML or JSON mapping) and are overridden by
--set key=value pairs. Values given with --set are read as YAML scalars, so
--set 2=true yields a flag and --set order=2 an integer.`,
		Example: `  meshgrid args square.geo --set 2=true
  meshgrid args square.geo --options mesh.yaml --set format=msh2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := map[string]any{}
			if optionsFile != "" {
				params, err := gmsh.LoadParametersFile(optionsFile)
				if err != nil {
					if errors.Is(err, gmsh.ErrValidation) {
						return usageError("%v", err)
					}
					return failure(err)
				}
				raw = params.Map()
			}

			for _, kv := range sets {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return usageError("invalid --set %q: expected key=value", kv)
				}
				parsed, err := parseScalar(value)
				if err != nil {
					return usageError("invalid --set %q: %v", kv, err)
				}
				raw[key] = parsed
			}

			params, err := gmsh.NewParameters(raw)
			if err != nil {
				return usageError("%v", err)
			}
			if withOutput && !params.IsSet(gmsh.KeyOutput) {
				params = params.WithOutput(gmsh.DefaultOutputFilename)
			}

			out := cmd.OutOrStdout()
			for _, arg := range params.CmdlineParams(args[0]) {
				fmt.Fprintln(out, arg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&optionsFile, "options", "", "YAML or JSON file with gmsh options.")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set one option, as key=value. Repeatable.")
	cmd.Flags().BoolVar(&withOutput, "with-output", false, "Append -o "+gmsh.DefaultOutputFilename+" unless o is set, as a calculation does.")
	return cmd
}

// parseScalar reads a --set value as a YAML scalar. Empty values and
// anything that is not a scalar stay strings.
func parseScalar(s string) (any, error) {
	if s == "" {
		return "", nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(s), &node); err != nil {
		return nil, err
	}
	if len(node.Content) != 1 || node.Content[0].Kind != yaml.ScalarNode {
		return s, nil
	}
	var v any
	if err := node.Content[0].Decode(&v); err != nil {
		return nil, err
	}
	if v == nil {
		// "null" and "~" are not meaningful option values.
		return s, nil
	}
	return v, nil
}
