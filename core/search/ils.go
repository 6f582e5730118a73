package search

import (
	"context"

	"github.com/kilianp07/forestplan/core/schedule"
)

// improvementEpsilon is the minimum gain local search treats as improving.
const improvementEpsilon = 1e-9

// IteratedLocalSearch alternates random perturbation with strict descent.
// The moves applied since the best schedule are kept as an undo trail so a
// rejected candidate is rolled back without copying the state.
type IteratedLocalSearch struct {
	tracker
	trail []schedule.Undo
	stall int
}

func (i *IteratedLocalSearch) Name() string { return "ils" }

func (i *IteratedLocalSearch) Init(rt *Runtime) error {
	i.init(rt)
	i.trail = i.trail[:0]
	i.stall = 0
	return nil
}

// Step perturbs (except on the first iteration), descends, then accepts the
// result when it is within acceptance_slack of the best.
func (i *IteratedLocalSearch) Step(ctx context.Context, it int) (Step, error) {
	rt := i.rt
	var step Step
	if it > 0 {
		for k := 0; k < rt.Config.PerturbationStrength; k++ {
			mv, ok := rt.Gen.Next(rt.State)
			if !ok {
				break
			}
			if u, ok := i.apply(mv); ok {
				i.trail = append(i.trail, u)
				step.Move, step.Proposed = mv, true
			}
		}
	}
	moved, err := i.descend(ctx, &step)
	if err != nil {
		return step, err
	}

	switch {
	case i.observe():
		i.trail = i.trail[:0]
		i.stall = 0
		step.Accepted = true
	case rt.State.Objective() >= i.score.Objective-rt.Config.AcceptanceSlack:
		i.stall++
		step.Accepted = step.Proposed
	default:
		i.restore()
		i.stall++
	}

	if !step.Proposed && !moved && it > 0 {
		i.status = StatusConverged
	}
	if rt.Config.StallLimit > 0 && i.stall >= rt.Config.StallLimit {
		i.status = StatusConverged
	}
	return step, nil
}

// descend applies strictly improving moves until none is left or
// local_search_cap moves were made.
func (i *IteratedLocalSearch) descend(ctx context.Context, step *Step) (bool, error) {
	rt := i.rt
	moved := false
	for n := 0; rt.Config.LocalSearchCap == 0 || n < rt.Config.LocalSearchCap; n++ {
		c, ok, err := rt.Eval.Best(ctx, rt.State, rt.Neighbourhood(), func(c schedule.Candidate) bool {
			return c.Gain > improvementEpsilon
		})
		if err != nil {
			return moved, err
		}
		if !ok {
			break
		}
		u, ok := i.apply(c.Move)
		if !ok {
			break
		}
		i.trail = append(i.trail, u)
		step.Move, step.Proposed = c.Move, true
		moved = true
	}
	return moved, nil
}

// restore unwinds the trail back to the best schedule.
func (i *IteratedLocalSearch) restore() {
	for k := len(i.trail) - 1; k >= 0; k-- {
		i.rt.State.Revert(i.trail[k])
	}
	i.trail = i.trail[:0]
}
