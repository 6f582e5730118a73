package search

import (
	"context"

	"github.com/kilianp07/forestplan/core/schedule"
)

// aspirationEpsilon is the margin by which a banned move must beat the best
// objective to be admitted.
const aspirationEpsilon = 1e-9

// Tabu is tabu search: every iteration moves to the best admissible
// neighbour, even a worsening one, and bans the reverse move for tenure
// iterations.
type Tabu struct {
	tracker
	// expiry maps a move signature to the first iteration at which it is
	// admissible again.
	expiry map[string]int
	stall  int
}

func (t *Tabu) Name() string { return "tabu" }

func (t *Tabu) Init(rt *Runtime) error {
	t.init(rt)
	t.expiry = make(map[string]int)
	t.stall = 0
	return nil
}

// Banned reports whether sig is tabu at iteration it.
func (t *Tabu) Banned(sig string, it int) bool {
	exp, ok := t.expiry[sig]
	return ok && it < exp
}

// admissible accepts non-banned candidates and banned ones that would set a
// new best objective.
func (t *Tabu) admissible(c schedule.Candidate, it int) bool {
	if !t.Banned(c.Signature, it) {
		return true
	}
	return t.rt.State.Objective()+c.Gain > t.score.Objective+aspirationEpsilon
}

func (t *Tabu) Step(ctx context.Context, it int) (Step, error) {
	rt := t.rt
	c, ok, err := rt.Eval.Best(ctx, rt.State, rt.Candidates(), func(c schedule.Candidate) bool {
		return t.admissible(c, it)
	})
	if err != nil {
		return Step{}, err
	}
	if !ok {
		t.status = StatusConverged
		return Step{}, nil
	}
	step := Step{Move: c.Move, Proposed: true}
	if _, step.Accepted = t.apply(c.Move); !step.Accepted {
		return step, nil
	}
	if rt.Config.Tenure > 0 {
		t.expiry[c.Move.Inverse().Signature()] = it + rt.Config.Tenure
	}
	t.prune(it)
	if t.observe() {
		t.stall = 0
	} else {
		t.stall++
	}
	if rt.Config.StallLimit > 0 && t.stall >= rt.Config.StallLimit {
		t.status = StatusConverged
	}
	return step, nil
}

// prune drops expired entries once the map grows past a few tenures.
func (t *Tabu) prune(it int) {
	if len(t.expiry) <= 4*max(t.rt.Config.Tenure, 1) {
		return
	}
	for sig, exp := range t.expiry {
		if it >= exp {
			delete(t.expiry, sig)
		}
	}
}
