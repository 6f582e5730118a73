package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInfeasibleProblem indicates that at least one block has no feasible day.
var ErrInfeasibleProblem = errors.New("problem infeasible by construction")

// ProblemError describes a malformed problem definition.
type ProblemError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ProblemError) Error() string {
	if e.Field == "" {
		return "problem: " + e.Reason
	}
	return fmt.Sprintf("problem: %s: %s", e.Field, e.Reason)
}

func (e *ProblemError) Unwrap() error { return e.Err }

// Validate checks references and numeric ranges. Blocks that are infeasible
// by construction are reported through ErrInfeasibleProblem.
//
//gocyclo:ignore
func (p *Problem) Validate() error {
	if p.LastDay < p.FirstDay {
		return &ProblemError{Field: "last_day", Reason: "must not precede first_day"}
	}
	if len(p.Machines) == 0 {
		return &ProblemError{Field: "machines", Reason: "at least one machine is required"}
	}
	blocks := make(map[string]bool, len(p.Blocks))
	landings := make(map[string]bool, len(p.Landings))
	machines := make(map[string]bool, len(p.Machines))
	for _, l := range p.Landings {
		if l.ID == "" || landings[l.ID] {
			return &ProblemError{Field: "landings", Reason: fmt.Sprintf("missing or duplicate id %q", l.ID)}
		}
		if l.Capacity < 0 || l.HardCapacity < 0 {
			return &ProblemError{Field: "landings." + l.ID, Reason: "capacity must not be negative"}
		}
		landings[l.ID] = true
	}
	for _, m := range p.Machines {
		if m.ID == "" || machines[m.ID] {
			return &ProblemError{Field: "machines", Reason: fmt.Sprintf("missing or duplicate id %q", m.ID)}
		}
		if m.DailyHours < 0 || m.Rate < 0 {
			return &ProblemError{Field: "machines." + m.ID, Reason: "hours and rate must not be negative"}
		}
		machines[m.ID] = true
	}
	for _, b := range p.Blocks {
		if b.ID == "" || blocks[b.ID] {
			return &ProblemError{Field: "blocks", Reason: fmt.Sprintf("missing or duplicate id %q", b.ID)}
		}
		blocks[b.ID] = true
	}
	for _, b := range p.Blocks {
		field := "blocks." + b.ID
		if b.Volume <= 0 {
			return &ProblemError{Field: field, Reason: "volume must be positive"}
		}
		if b.Earliest > b.Latest {
			return &ProblemError{Field: field, Reason: "earliest must not exceed latest"}
		}
		if b.Landing != "" && !landings[b.Landing] {
			return &ProblemError{Field: field, Reason: fmt.Sprintf("unknown landing %q", b.Landing)}
		}
		for _, pred := range b.Predecessors {
			if !blocks[pred] || pred == b.ID {
				return &ProblemError{Field: field, Reason: fmt.Sprintf("invalid predecessor %q", pred)}
			}
		}
	}
	for _, bo := range p.Blackouts {
		if !blocks[bo.Block] {
			return &ProblemError{Field: "blackouts", Reason: fmt.Sprintf("unknown block %q", bo.Block)}
		}
	}
	for _, t := range p.Mobilisation.Transitions {
		if !machines[t.Machine] {
			return &ProblemError{Field: "mobilisation", Reason: fmt.Sprintf("unknown machine %q", t.Machine)}
		}
	}
	if err := p.checkCycles(); err != nil {
		return err
	}
	if ids := p.Infeasible(); len(ids) > 0 {
		return &ProblemError{Field: "blocks", Reason: "no feasible day for " + strings.Join(ids, ", "), Err: ErrInfeasibleProblem}
	}
	return nil
}

// checkCycles rejects sequencing graphs that contain a cycle.
func (p *Problem) checkCycles() error {
	preds := make(map[string][]string, len(p.Blocks))
	for _, b := range p.Blocks {
		preds[b.ID] = b.Predecessors
	}
	const (
		unseen = iota
		active
		done
	)
	state := make(map[string]int, len(p.Blocks))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case active:
			return false
		case done:
			return true
		}
		state[id] = active
		for _, pr := range preds[id] {
			if !visit(pr) {
				return false
			}
		}
		state[id] = done
		return true
	}
	for _, b := range p.Blocks {
		if !visit(b.ID) {
			return &ProblemError{Field: "blocks." + b.ID, Reason: "sequencing cycle"}
		}
	}
	return nil
}
