// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package calcjob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/vk/meshgrid/internal/ctxlog"
)

// Runner builds ready-to-start commands for a calculation. The command must
// not be started yet.
type Runner interface {
	BuildCommand(ctx context.Context, folder *Folder, code CodeInfo) (*exec.Cmd, error)
}

// RunResult captures the outcome of one executable run.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// LocalRunner runs executables on this machine, inside the folder.
type LocalRunner struct {
	// MPILauncher prefixes WithMPI codes, e.g. []string{"mpirun", "-np", "1"}.
	MPILauncher []string
	Env         []string
}

// BuildCommand implements Runner.
func (r *LocalRunner) BuildCommand(ctx context.Context, folder *Folder, code CodeInfo) (*exec.Cmd, error) {
	if code.Executable == "" {
		return nil, ErrNoCode
	}
	name, args := code.Executable, code.CmdlineParams
	if code.WithMPI && len(r.MPILauncher) > 0 {
		name = r.MPILauncher[0]
		args = append(append(append([]string{}, r.MPILauncher[1:]...), code.Executable), code.CmdlineParams...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = folder.Path()
	cmd.Env = append(os.Environ(), r.Env...)
	return cmd, nil
}

// Execute runs the first code of info inside folder. A wallclock of zero
// means no limit. A non-zero exit status is reported in the result, not as
// an error.
func Execute(ctx context.Context, runner Runner, folder *Folder, info *CalcInfo, wallclock time.Duration) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)
	if len(info.CodesInfo) == 0 {
		return nil, ErrNoCode
	}
	code := info.CodesInfo[0]

	runCtx := ctx
	if wallclock > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, wallclock)
		defer cancel()
	}

	cmd, err := runner.BuildCommand(runCtx, folder, code)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	var stdoutFile *os.File
	if code.StdoutName != "" {
		p, err := folder.resolve(code.StdoutName)
		if err != nil {
			return nil, err
		}
		stdoutFile, err = os.Create(p)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout file: %w", err)
		}
		defer stdoutFile.Close()
		cmd.Stdout = io.MultiWriter(stdoutFile, &stdout)
	} else {
		cmd.Stdout = &stdout
	}

	logger.Debug("Starting executable.", "executable", cmd.Path, "args", cmd.Args[1:], "dir", cmd.Dir)
	start := time.Now()
	runErr := cmd.Run()
	res := &RunResult{
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run '%s': %w", code.Executable, runErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		if res.ExitCode == 0 {
			res.ExitCode = 1
		}
	}

	logger.Debug("Executable finished.", "exit_code", res.ExitCode, "duration", res.Duration, "timed_out", res.TimedOut)
	return res, nil
}
