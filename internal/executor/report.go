// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"time"

	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Status is the outcome of a step.
type Status int

const (
	StatusPending Status = iota
	StatusDone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// StepRecord is what the executor remembers about one step.
type StepRecord struct {
	ID       string
	Status   Status
	ExitCode calcjob.ExitCode
	Err      error
	Output   cty.Value
	Duration time.Duration

	step *model.Step
}

// Report holds one record per step, in execution order.
type Report struct {
	Steps []*StepRecord
	byID  map[string]*StepRecord
}

func newReport(order []*model.Step) *Report {
	r := &Report{
		Steps: make([]*StepRecord, 0, len(order)),
		byID:  make(map[string]*StepRecord, len(order)),
	}
	for _, s := range order {
		rec := &StepRecord{ID: s.ID(), step: s}
		r.Steps = append(r.Steps, rec)
		r.byID[rec.ID] = rec
	}
	return r
}

// Record returns the record for a step ID, or nil.
func (r *Report) Record(id string) *StepRecord {
	return r.byID[id]
}

// Unsuccessful lists failed and skipped steps in execution order.
func (r *Report) Unsuccessful() []*StepRecord {
	var out []*StepRecord
	for _, rec := range r.Steps {
		if rec.Status == StatusFailed || rec.Status == StatusSkipped {
			out = append(out, rec)
		}
	}
	return out
}

func (r *Report) firstUnsuccessful(ids []string) *StepRecord {
	for _, id := range ids {
		if rec := r.byID[id]; rec != nil && rec.Status != StatusDone {
			return rec
		}
	}
	return nil
}
