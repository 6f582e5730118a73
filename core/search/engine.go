package search

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/forestplan/core/logger"
	"github.com/kilianp07/forestplan/core/schedule"
)

// Status is the lifecycle state of a run.
type Status int

const (
	StatusInitialized Status = iota
	StatusRunning
	StatusConverged
	StatusBudgetExhausted
	StatusAborted
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "INITIALIZED"
	case StatusRunning:
		return "RUNNING"
	case StatusConverged:
		return "CONVERGED"
	case StatusBudgetExhausted:
		return "BUDGET_EXHAUSTED"
	case StatusAborted:
		return "ABORTED"
	case StatusTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a status name written by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	for st := StatusInitialized; st <= StatusTerminated; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Terminal reports whether s ends the running phase.
func (s Status) Terminal() bool {
	return s == StatusConverged || s == StatusBudgetExhausted || s == StatusAborted
}

// lifecycle enforces INITIALIZED -> RUNNING -> terminal -> TERMINATED.
type lifecycle struct {
	state Status
	cause Status
}

func (l *lifecycle) to(next Status) error {
	ok := false
	switch l.state {
	case StatusInitialized:
		ok = next == StatusRunning || next == StatusAborted
	case StatusRunning:
		ok = next.Terminal()
	case StatusConverged, StatusBudgetExhausted, StatusAborted:
		ok = next == StatusTerminated
	}
	if !ok {
		return fmt.Errorf("invalid status transition %s -> %s", l.state, next)
	}
	if next.Terminal() {
		l.cause = next
	}
	l.state = next
	return nil
}

// Runtime is what an engine works on. The driver builds it; the engine owns
// it exclusively for the duration of the run.
type Runtime struct {
	State  *schedule.State
	Gen    *schedule.Generator
	Rand   *rand.Rand
	Eval   *BatchEvaluator
	Config Config
	Log    logger.Logger
}

// Neighbourhood returns the moves examined by one iteration: the full
// neighbourhood when neighbourhood_size is 0, a sample otherwise.
func (rt *Runtime) Neighbourhood() []schedule.Move {
	if rt.Config.NeighbourhoodSize == 0 {
		return schedule.Enumerate(rt.State)
	}
	return rt.Gen.Neighbourhood(rt.State, rt.Config.NeighbourhoodSize)
}

// Candidates returns the moves a best-of-batch iteration scores: a sample of
// batch_size moves when batch_size > 1, Neighbourhood otherwise.
func (rt *Runtime) Candidates() []schedule.Move {
	if rt.Config.BatchSize > 1 {
		return rt.Gen.Neighbourhood(rt.State, rt.Config.BatchSize)
	}
	return rt.Neighbourhood()
}

// Step reports what one iteration did.
type Step struct {
	Move        schedule.Move
	Proposed    bool
	Accepted    bool
	Temperature *float64
}

// Engine is one acceptance strategy. Step runs a single iteration; the
// driver calls it until the engine reports StatusConverged or the budget
// runs out.
type Engine interface {
	Name() string
	Init(rt *Runtime) error
	Step(ctx context.Context, iteration int) (Step, error)
	Status() Status
	Best() *schedule.State
}

// tracker holds the state every builtin engine shares: the runtime, the
// best schedule seen so far and the engine status.
type tracker struct {
	rt     *Runtime
	best   *schedule.State
	score  schedule.Score
	status Status
}

func (t *tracker) init(rt *Runtime) {
	t.rt = rt
	t.best = rt.State.Clone()
	t.score = rt.State.Score()
	t.status = StatusRunning
}

// observe records the current state when it beats the best so far.
func (t *tracker) observe() bool {
	sc := t.rt.State.Score()
	if !sc.Better(t.score) {
		return false
	}
	t.best = t.rt.State.Clone()
	t.score = sc
	return true
}

func (t *tracker) Status() Status        { return t.status }
func (t *tracker) Best() *schedule.State { return t.best }

// apply applies mv and logs a rejection. Moves come from the generator, so a
// violation here means the state changed between proposal and application.
func (t *tracker) apply(mv schedule.Move) (schedule.Undo, bool) {
	u, err := t.rt.State.Apply(mv)
	if err != nil {
		t.rt.Log.Debugf("move %s rejected: %v", mv, err)
		return schedule.Undo{}, false
	}
	return u, true
}
