// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/meshgrid/internal/app"
	"github.com/vk/meshgrid/internal/artifact"
)

func storeCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Work with stored meshes",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", app.DefaultStorePath, "Directory of the mesh artifact store.")

	openStore := func() (*artifact.Store, error) {
		return artifact.NewStore(storePath)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored meshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return failure(err)
			}
			arts, err := store.List()
			if err != nil {
				return failure(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tCREATED\tBLAKE3")
			for _, a := range arts {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", a.ID, a.Filename, a.Size, a.CreatedAt.Format(time.RFC3339), shortDigest(a.Digest))
			}
			return tw.Flush()
		},
	}

	var outPath string
	export := &cobra.Command{
		Use:   "export ID",
		Short: "Write a stored mesh to a file",
		Long: `Write the decompressed content of a stored mesh. Without --out the file is
written to the current directory under its original name; --out - writes to
standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return failure(err)
			}
			meta, err := store.Get(args[0])
			if err != nil {
				return failure(err)
			}
			rc, err := store.Open(meta.ID)
			if err != nil {
				return failure(err)
			}
			defer rc.Close()

			if outPath == "-" {
				if _, err := io.Copy(cmd.OutOrStdout(), rc); err != nil {
					return failure(err)
				}
				return nil
			}

			dst := outPath
			if dst == "" {
				dst = filepath.Base(meta.Filename)
			}
			f, err := os.Create(dst)
			if err != nil {
				return failure(err)
			}
			if _, err := io.Copy(f, rc); err != nil {
				f.Close()
				return failure(err)
			}
			if err := f.Close(); err != nil {
				return failure(err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", dst, meta.Size)
			return nil
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "Destination file, or - for standard output.")

	verify := &cobra.Command{
		Use:   "verify ID",
		Short: "Check a stored mesh against its recorded digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return failure(err)
			}
			if err := store.Verify(args[0]); err != nil {
				return failure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, export, verify)
	return cmd
}

func shortDigest(d string) string {
	if len(d) > 16 {
		return d[:16]
	}
	return d
}
