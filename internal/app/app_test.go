// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, gridHCL string) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	gridDir := filepath.Join(dir, "grid")
	require.NoError(t, os.Mkdir(gridDir, 0o755))
	if gridHCL != "" {
		require.NoError(t, os.WriteFile(filepath.Join(gridDir, "main.hcl"), []byte(gridHCL), 0o644))
	}

	cfg, err := NewConfig(Config{GridPath: gridDir, StorePath: filepath.Join(dir, "store"), WorkDir: dir})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a, err := NewApp(context.Background(), out, cfg)
	require.NoError(t, err)
	return a, out
}

func TestNewApp_RegistersCoreModules(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, "")
	assert.Equal(t, []string{"env", "gmsh", "print", "publish"}, a.Registry().RunnerTypes())
	assert.Equal(t, []string{"OnRunEnv", "OnRunGmsh", "OnRunPrint", "OnRunPublish"}, a.Registry().Handlers.Names())
	require.NotNil(t, a.Store())

	_, err := os.Stat(a.Store().Root())
	assert.NoError(t, err, "the store directory is created up front")
}

func TestNewApp_ExtraManifestWithoutHandler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	modules := filepath.Join(dir, "modules")
	require.NoError(t, os.MkdirAll(modules, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modules, "extra.hcl"), []byte(`
		runner "extra" {
			lifecycle { on_run = "OnRunExtra" }
		}
	`), 0o644))

	cfg, err := NewConfig(Config{GridPath: dir, ModulesPath: modules, StorePath: filepath.Join(dir, "store")})
	require.NoError(t, err)

	_, err = NewApp(context.Background(), &bytes.Buffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler 'OnRunExtra' is not registered")
}

func TestRun_EmptyGrid(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Steps)
	assert.Contains(t, out.String(), "No steps found in grid")
}

func TestRun_PrintsValues(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, `
		step "print" "greeting" {
			arguments {
				label = "greeting"
				input = { name = "square", nodes = 4 }
			}
		}
	`)
	report, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.Contains(t, out.String(), "greeting:\n      name = \"square\"\n      nodes = 4\n")
}

func TestRun_InvalidGrid(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, `step "print" {`)
	_, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load grid")
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, "")
	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestHealthCheckServer_DisabledByDefault(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, "")
	a.healthCheckServer()
	assert.Nil(t, a.httpServer)
	assert.NoError(t, a.closeHealthCheckServer())
}
