// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package calcjob

import "fmt"

// ExitCode is the structured outcome of a calculation.
type ExitCode struct {
	Status  int
	Label   string
	Message string
}

var (
	ExitOK = ExitCode{Status: 0, Label: "OK"}

	ErrorMissingOutputFiles = ExitCode{
		Status:  300,
		Label:   "ERROR_MISSING_OUTPUT_FILES",
		Message: "Calculation did not produce all expected output files.",
	}
	ErrorExecutableFailed = ExitCode{
		Status:  301,
		Label:   "ERROR_EXECUTABLE_FAILED",
		Message: "The executable exited with a non-zero status.",
	}
	ErrorInvalidOutputFile = ExitCode{
		Status:  302,
		Label:   "ERROR_INVALID_OUTPUT_FILE",
		Message: "The output file could not be parsed.",
	}
)

// IsFailure reports whether the exit code marks a failed calculation.
func (c ExitCode) IsFailure() bool {
	return c.Status != 0
}

// WithMessage returns a copy of c carrying a more specific message.
func (c ExitCode) WithMessage(format string, args ...any) ExitCode {
	c.Message = fmt.Sprintf(format, args...)
	return c
}

func (c ExitCode) String() string {
	if c.Message == "" {
		return fmt.Sprintf("[%d] %s", c.Status, c.Label)
	}
	return fmt.Sprintf("[%d] %s: %s", c.Status, c.Label, c.Message)
}

// FailedError carries a failure exit code out of a runner handler so the
// executor can record it on the step.
type FailedError struct {
	Code ExitCode
}

func (e *FailedError) Error() string {
	return "calculation failed " + e.Code.String()
}

// Fail wraps a failure exit code as an error. It returns nil for ExitOK.
func Fail(code ExitCode) error {
	if !code.IsFailure() {
		return nil
	}
	return &FailedError{Code: code}
}
