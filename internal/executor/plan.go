// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/vk/meshgrid/internal/model"
)

// Plan is a validated execution order.
type Plan struct {
	Order []*model.Step
	// Deps maps a step ID to the IDs it depends on, sorted.
	Deps map[string][]string
}

// Plan resolves every step's runner and dependencies and orders the steps
// so that each runs after everything it depends on. Among ready steps the
// one declared first wins.
func (e *Executor) Plan(ctx context.Context) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	known := make(map[string]*model.Step, len(e.grid.Steps))
	for _, s := range e.grid.Steps {
		known[s.ID()] = s
	}

	var errs []string
	deps := make(map[string][]string, len(e.grid.Steps))
	for _, s := range e.grid.Steps {
		if _, ok := e.registry.Runner(s.RunnerType); !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown runner type '%s'", s.ID(), s.RunnerType))
		}

		set := make(map[string]struct{})
		for _, ref := range stepReferences(s) {
			id, err := traversalToStepID(ref)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", s.ID(), err))
				continue
			}
			if _, ok := known[id]; !ok {
				errs = append(errs, fmt.Sprintf("%s: reference to undeclared step %s", s.ID(), id))
				continue
			}
			if id == s.ID() {
				errs = append(errs, fmt.Sprintf("%s: step refers to itself", s.ID()))
				continue
			}
			set[id] = struct{}{}
		}
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		deps[s.ID()] = ids
		logger.Debug("Resolved step dependencies.", "step", s.ID(), "depends_on", ids)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid grid:\n- %s", strings.Join(errs, "\n- "))
	}

	order := make([]*model.Step, 0, len(e.grid.Steps))
	placed := make(map[string]bool, len(e.grid.Steps))
	for len(order) < len(e.grid.Steps) {
		progressed := false
		for _, s := range e.grid.Steps {
			if placed[s.ID()] || !allPlaced(deps[s.ID()], placed) {
				continue
			}
			order = append(order, s)
			placed[s.ID()] = true
			progressed = true
			break
		}
		if !progressed {
			var cyclic []string
			for _, s := range e.grid.Steps {
				if !placed[s.ID()] {
					cyclic = append(cyclic, s.ID())
				}
			}
			return nil, fmt.Errorf("dependency cycle detected between steps: %s", strings.Join(cyclic, ", "))
		}
	}

	return &Plan{Order: order, Deps: deps}, nil
}

func allPlaced(ids []string, placed map[string]bool) bool {
	for _, id := range ids {
		if !placed[id] {
			return false
		}
	}
	return true
}

// stepReferences collects explicit depends_on entries and every `step.*`
// traversal used in the step's arguments.
func stepReferences(s *model.Step) []hcl.Traversal {
	refs := append([]hcl.Traversal(nil), s.DependsOn...)

	names := make([]string, 0, len(s.Arguments))
	for name := range s.Arguments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range s.Arguments[name].Variables() {
			if v.RootName() == "step" {
				refs = append(refs, v)
			}
		}
	}
	return refs
}

// traversalToStepID converts step.<runner>.<name>[...] into its step ID.
func traversalToStepID(t hcl.Traversal) (string, error) {
	if len(t) < 3 || t.RootName() != "step" {
		return "", fmt.Errorf("invalid step reference, expected step.<runner>.<name>")
	}
	runner, ok1 := t[1].(hcl.TraverseAttr)
	name, ok2 := t[2].(hcl.TraverseAttr)
	if !ok1 || !ok2 {
		return "", fmt.Errorf("invalid step reference, expected step.<runner>.<name>")
	}
	return fmt.Sprintf("step.%s.%s", runner.Name, name.Name), nil
}
