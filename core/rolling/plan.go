package rolling

import (
	"fmt"

	"github.com/kilianp07/forestplan/core/search"
)

// Window is one sub-horizon. Days are absolute and inclusive; assignments
// on days Start..LockEnd are locked once the window is solved.
type Window struct {
	Index   int `json:"index"`
	Start   int `json:"start"`
	End     int `json:"end"`
	LockEnd int `json:"lock_end"`
}

func (w Window) String() string {
	return fmt.Sprintf("window %d [%d,%d] lock<=%d", w.Index, w.Start, w.End, w.LockEnd)
}

// Plan lists the windows of a rolling solve.
type Plan struct {
	MasterDays     int      `json:"master_days"`
	SubproblemDays int      `json:"subproblem_days"`
	LockDays       int      `json:"lock_days"`
	Windows        []Window `json:"windows"`
}

// BuildPlan splits days 1..master into windows of sub days. Consecutive
// windows start lock days apart, so they overlap by sub-lock days. The last
// window is truncated at master and locks everything up to it.
func BuildPlan(master, sub, lock int) (Plan, error) {
	switch {
	case master < 1:
		return Plan{}, &search.ConfigurationError{Key: "master_days", Value: master, Reason: "must be at least 1"}
	case sub < 1:
		return Plan{}, &search.ConfigurationError{Key: "subproblem_days", Value: sub, Reason: "must be at least 1"}
	case lock < 1:
		return Plan{}, &search.ConfigurationError{Key: "lock_days", Value: lock, Reason: "must be at least 1"}
	case lock > sub:
		return Plan{}, &search.ConfigurationError{Key: "lock_days", Value: lock, Reason: "must not exceed subproblem_days"}
	}
	plan := Plan{MasterDays: master, SubproblemDays: sub, LockDays: lock}
	for start := 1; ; start += lock {
		w := Window{
			Index:   len(plan.Windows),
			Start:   start,
			End:     min(start+sub-1, master),
			LockEnd: min(start+lock-1, master),
		}
		if w.End == master {
			w.LockEnd = master
		}
		plan.Windows = append(plan.Windows, w)
		if w.End == master {
			return plan, nil
		}
	}
}

// Offset returns a copy of the plan with every day moved so that day 1
// becomes first.
func (p Plan) Offset(first int) Plan {
	out := p
	out.Windows = make([]Window, len(p.Windows))
	for i, w := range p.Windows {
		w.Start += first - 1
		w.End += first - 1
		w.LockEnd += first - 1
		out.Windows[i] = w
	}
	return out
}
