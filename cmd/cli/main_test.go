// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/cli"
)

func TestRun_InvalidGrid(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A grid with a syntax error fails while loading, before any step runs.
	invalidHCL := `
		step "print" "A" {
			arguments {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"run", filePath, "--store", filepath.Join(tempDir, "store")}
	out, errW := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, errW, args)

	// --- Assert ---
	require.Error(t, runErr)
	var exitErr *cli.ExitError
	require.True(t, errors.As(runErr, &exitErr))
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to load grid")
	require.Contains(t, exitErr.Message, "failed to parse")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_PrintGrid(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`
		step "print" "hello" {
			arguments {
				input = "hello from meshgrid"
			}
		}
	`), 0600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"run", "-g", filePath, "--store", filepath.Join(tempDir, "store"), "--log-level", "error"})

	require.NoError(t, err)
	require.Contains(t, out.String(), "      \"hello from meshgrid\"\n")
	require.Contains(t, out.String(), "step.print.hello")
}
