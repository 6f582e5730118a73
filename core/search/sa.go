package search

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forestplan/core/schedule"
)

// calibrationSample is the number of moves sampled to pick a starting
// temperature.
const calibrationSample = 32

// Annealing is simulated annealing with geometric cooling.
type Annealing struct {
	tracker
	temp float64
}

func (a *Annealing) Name() string { return "sa" }

// Temperature returns the current temperature.
func (a *Annealing) Temperature() float64 { return a.temp }

func (a *Annealing) Init(rt *Runtime) error {
	a.init(rt)
	a.temp = rt.Config.InitialTemperature
	if a.temp == 0 {
		a.temp = calibrate(rt)
		rt.Log.Debugf("sa: calibrated initial temperature %.4f", a.temp)
	}
	return nil
}

// calibrate picks T0 so that an average worsening move is accepted with
// probability one half.
func calibrate(rt *Runtime) float64 {
	var worse []float64
	for _, mv := range rt.Gen.Neighbourhood(rt.State, calibrationSample) {
		if g := rt.State.Delta(mv); g < 0 {
			worse = append(worse, -g)
		}
	}
	if len(worse) == 0 {
		return 1
	}
	return stat.Mean(worse, nil) / math.Ln2
}

func (a *Annealing) Step(ctx context.Context, _ int) (Step, error) {
	t := a.temp
	step := Step{Temperature: &t}
	mv, gain, ok, err := a.propose(ctx)
	if err != nil {
		return step, err
	}
	if !ok {
		// No feasible move exists in the current state.
		a.status = StatusConverged
		return step, nil
	}
	step.Move, step.Proposed = mv, true
	accept := gain >= 0
	if !accept {
		accept = a.rt.Rand.Float64() < math.Exp(gain/a.temp)
	}
	if accept {
		_, step.Accepted = a.apply(mv)
		if step.Accepted {
			a.observe()
		}
	}
	a.temp *= a.rt.Config.CoolingRate
	if a.temp < a.rt.Config.MinTemperature {
		a.status = StatusConverged
	}
	return step, nil
}

// propose draws one move, or the best of a batch when batch_size > 1.
func (a *Annealing) propose(ctx context.Context) (schedule.Move, float64, bool, error) {
	rt := a.rt
	if rt.Config.BatchSize > 1 {
		if moves := rt.Gen.Neighbourhood(rt.State, rt.Config.BatchSize); len(moves) > 0 {
			c, ok, err := rt.Eval.Best(ctx, rt.State, moves, nil)
			return c.Move, c.Gain, ok, err
		}
	}
	mv, ok := rt.Gen.Next(rt.State)
	if !ok {
		return mv, 0, false, nil
	}
	return mv, rt.State.Delta(mv), true, nil
}
