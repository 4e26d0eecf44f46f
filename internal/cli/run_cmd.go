// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/meshgrid/internal/app"
	"github.com/vk/meshgrid/internal/executor"
)

func runCmd() *cobra.Command {
	var cfg app.Config
	var gridFlag string
	var mpiLauncher string

	cmd := &cobra.Command{
		Use:   "run [GRID_PATH]",
		Short: "Run a grid",
		Long: `Run every step of a grid.

GRID_PATH is a single .hcl file or a directory searched recursively for
.hcl files. It can also be given with --grid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case gridFlag != "":
				cfg.GridPath = gridFlag
			case len(args) > 0:
				cfg.GridPath = args[0]
			}
			if cfg.GridPath == "" {
				_ = cmd.Usage()
				return usageError("a grid path is required")
			}
			if mpiLauncher != "" {
				cfg.MPILauncher = strings.Fields(mpiLauncher)
			}

			config, err := app.NewConfig(cfg)
			if err != nil {
				return usageError("%v", err)
			}

			out := cmd.OutOrStdout()
			a, err := app.NewApp(cmd.Context(), out, config)
			if err != nil {
				return failure(err)
			}

			report, runErr := a.Run(cmd.Context())
			if report != nil && len(report.Steps) > 0 {
				printReport(out, report)
			}
			if runErr != nil {
				return failure(runErr)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&gridFlag, "grid", "g", "", "Path to the grid file or directory.")
	flags.StringVar(&cfg.ModulesPath, "modules-path", "", "Directory with additional runner manifests.")
	flags.StringVar(&cfg.StorePath, "store", app.DefaultStorePath, "Directory of the mesh artifact store.")
	flags.StringVar(&cfg.WorkDir, "workdir", "", "Parent directory for execution folders (default: system temp dir).")
	flags.BoolVar(&cfg.KeepWorkDir, "keep-workdir", false, "Keep execution folders after each step.")
	flags.StringVar(&mpiLauncher, "mpi-launcher", "", "Command prefix for steps with with_mpi, e.g. \"mpirun -np 4\".")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	return cmd
}

func printReport(w io.Writer, report *executor.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tEXIT\tDURATION\tDETAIL")
	for _, rec := range report.Steps {
		exit := "-"
		if rec.ExitCode.Status != 0 {
			exit = fmt.Sprintf("%d %s", rec.ExitCode.Status, rec.ExitCode.Label)
		}
		detail := ""
		if rec.Err != nil {
			detail = firstLine(rec.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.ID, rec.Status, exit, rec.Duration.Round(time.Millisecond), detail)
	}
	tw.Flush()
}

func firstLine(err error) string {
	msg := err.Error()
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		msg = exitErr.Message
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
