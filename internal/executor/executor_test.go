// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/executor"
	"github.com/vk/meshgrid/internal/handlers"
	"github.com/vk/meshgrid/internal/model"
	"github.com/vk/meshgrid/internal/registry"
	"github.com/vk/meshgrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

type traceInput struct {
	Value cty.Value `bggo:"value"`
	Fail  string    `bggo:"fail"`
}

// traceModule provides a "trace" runner that records the order steps run
// in and echoes its value back as output.value.
type traceModule struct {
	ran []string
}

const traceManifest = `
runner "trace" {
	lifecycle { on_run = "OnRunTrace" }
	input "value" {
		type     = any
		optional = true
	}
	input "fail" {
		type    = string
		default = ""
	}
	output "value" {
		type = any
	}
}`

func (m *traceModule) Register(r *registry.Registry) {
	r.Handlers.RegisterHandler("OnRunTrace", &handlers.RegisteredHandler{
		Input:     func() any { return new(traceInput) },
		InputType: reflect.TypeOf(traceInput{}),
		Deps:      func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ *struct{}, in *traceInput) (cty.Value, error) {
			if !in.Value.IsNull() && in.Value.Type() == cty.String {
				m.ran = append(m.ran, in.Value.AsString())
			}
			switch in.Fail {
			case "exit":
				return cty.NilVal, calcjob.Fail(calcjob.ErrorMissingOutputFiles)
			case "error":
				return cty.NilVal, errors.New("handler blew up")
			}
			out := in.Value
			if out.IsNull() {
				out = cty.NullVal(cty.DynamicPseudoType)
			}
			return cty.ObjectVal(map[string]cty.Value{"value": out}), nil
		},
	})
}

func (m *traceModule) Manifest() (string, []byte) {
	return "trace/manifest.hcl", []byte(traceManifest)
}

func runGrid(ctx context.Context, t *testing.T, src string) (*traceModule, *executor.Report, error) {
	t.Helper()
	mod := &traceModule{}
	reg := registry.New()
	require.NoError(t, reg.RegisterModules(ctx, mod))
	require.NoError(t, reg.ValidateRegistry(ctx))

	steps, err := model.ParseGridSource([]byte(src), "grid/main.hcl")
	require.NoError(t, err)
	grid := model.NewGrid()
	grid.Steps = steps

	report, err := executor.New(grid, reg, nil).Run(ctx)
	return mod, report, err
}

func TestRun_DependencyOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Declared out of order: c reads b, b depends on a.
	src := `
		step "trace" "c" {
			arguments { value = "c from ${step.trace.b.output.value}" }
		}
		step "trace" "b" {
			depends_on = [step.trace.a]
			arguments { value = "b" }
		}
		step "trace" "a" {
			arguments { value = "a" }
		}
		step "trace" "d" {
			arguments { value = "d" }
		}
	`

	// --- Act ---
	mod, report, err := runGrid(context.Background(), t, src)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c from b", "d"}, mod.ran)
	require.Len(t, report.Steps, 4)
	for _, rec := range report.Steps {
		assert.Equal(t, executor.StatusDone, rec.Status, rec.ID)
	}
	assert.Equal(t, "c from b", report.Record("step.trace.c").Output.GetAttr("value").AsString())
}

func TestRun_PathVariables(t *testing.T) {
	t.Parallel()

	_, report, err := runGrid(context.Background(), t, `
		step "trace" "p" {
			arguments { value = path.grid }
		}
	`)
	require.NoError(t, err)
	got := report.Record("step.trace.p").Output.GetAttr("value").AsString()
	assert.True(t, filepath.IsAbs(got), "path.grid should be absolute, got %q", got)
	assert.Contains(t, got, "grid")
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		fail         string
		wantExitCode int
	}{
		{name: "failure exit code", fail: "exit", wantExitCode: 300},
		{name: "plain error", fail: "error", wantExitCode: 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := `
				step "trace" "mesh" {
					arguments {
						value = "mesh"
						fail  = "` + tc.fail + `"
					}
				}
				step "trace" "after" {
					arguments { value = step.trace.mesh.output.value }
				}
				step "trace" "after_after" {
					depends_on = [step.trace.after]
					arguments { value = "after_after" }
				}
				step "trace" "independent" {
					arguments { value = "independent" }
				}
			`
			mod, report, err := runGrid(context.Background(), t, src)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "3 step(s) did not succeed")
			assert.Equal(t, []string{"mesh", "independent"}, mod.ran)

			mesh := report.Record("step.trace.mesh")
			assert.Equal(t, executor.StatusFailed, mesh.Status)
			assert.Equal(t, tc.wantExitCode, mesh.ExitCode.Status)
			assert.Equal(t, executor.StatusSkipped, report.Record("step.trace.after").Status)
			after := report.Record("step.trace.after_after")
			assert.Equal(t, executor.StatusSkipped, after.Status)
			assert.ErrorContains(t, after.Err, "dependency step.trace.after skipped")
			assert.Equal(t, executor.StatusDone, report.Record("step.trace.independent").Status)
		})
	}
}

func TestPlan_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name: "cycle",
			src: `
				step "trace" "a" {
					arguments { value = step.trace.b.output }
				}
				step "trace" "b" {
					arguments { value = step.trace.a.output }
				}
				step "trace" "c" {}
			`,
			wantErr: "dependency cycle detected between steps: step.trace.a, step.trace.b",
		},
		{
			name:    "undeclared step",
			src:     `step "trace" "a" { depends_on = [step.trace.ghost] }`,
			wantErr: "reference to undeclared step step.trace.ghost",
		},
		{
			name: "self reference",
			src: `
				step "trace" "a" {
					arguments { value = step.trace.a.output }
				}
			`,
			wantErr: "step refers to itself",
		},
		{
			name:    "unknown runner",
			src:     `step "gmsh" "a" {}`,
			wantErr: "unknown runner type 'gmsh'",
		},
		{
			name: "index instead of name",
			src: `
				step "trace" "a" {
					arguments { value = step.trace[0] }
				}
			`,
			wantErr: "invalid step reference",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mod, report, err := runGrid(context.Background(), t, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Nil(t, report)
			assert.Empty(t, mod.ran, "nothing runs when the plan is invalid")
		})
	}
}

func TestRun_UnsupportedArgumentFailsStep(t *testing.T) {
	t.Parallel()

	_, report, err := runGrid(context.Background(), t, `
		step "trace" "a" {
			arguments { colour = "red" }
		}
	`)
	require.Error(t, err)
	rec := report.Record("step.trace.a")
	assert.Equal(t, executor.StatusFailed, rec.Status)
	assert.ErrorContains(t, rec.Err, "unsupported argument(s): colour")
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mod, report, err := runGrid(ctx, t, `
		step "trace" "a" {
			arguments { value = "a" }
		}
	`)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mod.ran)
	assert.Equal(t, executor.StatusSkipped, report.Record("step.trace.a").Status)
}

func TestRun_ThroughApp(t *testing.T) {
	t.Parallel()

	mod := &traceModule{}
	result := testutil.RunIntegrationTest(t, map[string]string{
		"grid/a.hcl": `
			step "trace" "first" {
				arguments { value = "first" }
			}`,
		"grid/nested/b.hcl": `
			step "trace" "second" {
				arguments { value = step.trace.first.output.value }
			}`,
	}, mod)

	require.NoError(t, result.Err)
	testutil.AssertStepRan(t, result, "trace", "first")
	testutil.AssertStepRan(t, result, "trace", "second")
	assert.Equal(t, []string{"first", "first"}, mod.ran)
	assert.Contains(t, result.LogOutput, "🏁 Execution finished.")
}
