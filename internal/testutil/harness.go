// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package testutil holds the integration harness shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/app"
	"github.com/vk/meshgrid/internal/executor"
	"github.com/vk/meshgrid/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	Report    *executor.Report
	Err       error
	App       *app.App
}

// WriteFiles writes files, keyed by slash-separated relative path, under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		filePath := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext writes files into a temporary root (grids
// under "grid/", extra manifests under "modules/"), builds an app with the
// given modules and runs it. Without modules the core modules are used.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	gridDir := filepath.Join(tmpDir, "grid")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.Mkdir(gridDir, 0o755))
	require.NoError(t, os.Mkdir(modulesDir, 0o755))
	WriteFiles(t, tmpDir, files)

	appConfig, err := app.NewConfig(app.Config{
		GridPath:    gridDir,
		ModulesPath: modulesDir,
		StorePath:   filepath.Join(tmpDir, "store"),
		WorkDir:     tmpDir,
		LogLevel:    "debug",
		LogFormat:   "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Dir: tmpDir}

	testApp, err := app.NewApp(ctx, logBuffer, appConfig, modules...)
	if err == nil {
		result.App = testApp
		result.Report, err = testApp.Run(ctx)
	}
	result.Err = err
	result.LogOutput = logBuffer.String()

	if os.Getenv("MESHGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}
