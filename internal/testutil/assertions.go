// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/executor"
)

// AssertStepStatus checks the run report for the status of one step.
func AssertStepStatus(t *testing.T, result *HarnessResult, runnerType, stepName string, want executor.Status) *executor.StepRecord {
	t.Helper()

	require.NotNil(t, result.Report, "run produced no report: %v", result.Err)
	id := "step." + runnerType + "." + stepName
	rec := result.Report.Record(id)
	require.NotNil(t, rec, "step %s not found in report", id)
	require.Equal(t, want, rec.Status, "unexpected status for %s (err: %v)", id, rec.Err)
	return rec
}

// AssertStepRan checks that a step completed successfully.
func AssertStepRan(t *testing.T, result *HarnessResult, runnerType, stepName string) *executor.StepRecord {
	t.Helper()
	return AssertStepStatus(t, result, runnerType, stepName, executor.StatusDone)
}
