// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vk/meshgrid/internal/app"
	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/modules/gmsh"
)

func inspectCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "inspect MSHFILE|MESH_ID",
		Short: "Summarize a gmsh mesh file",
		Long: `Print the format, dimension, node and element counts and physical groups
of a .msh file. The argument may also be the id of a mesh in the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			var mesh *gmsh.Mesh
			if _, statErr := os.Stat(target); statErr == nil {
				m, err := gmsh.ReadMSHFile(target)
				if err != nil {
					return failure(err)
				}
				mesh = m
			} else {
				store, err := artifact.NewStore(storePath)
				if err != nil {
					return failure(err)
				}
				rc, err := store.Open(target)
				if err != nil {
					return failure(fmt.Errorf("%s: not a file or stored mesh: %w", target, err))
				}
				defer rc.Close()
				m, err := gmsh.ReadMSH(rc)
				if err != nil {
					return failure(err)
				}
				mesh = m
			}

			fmt.Fprint(cmd.OutOrStdout(), mesh.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", app.DefaultStorePath, "Directory of the mesh artifact store.")
	return cmd
}
