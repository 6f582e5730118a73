package search

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/logger"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/schedule"
	"github.com/kilianp07/forestplan/core/telemetry"
)

// singleDayProblem has one block that can only be worked on day 4.
func singleDayProblem() *model.Problem {
	p := &model.Problem{
		Name:     "single",
		FirstDay: 1,
		LastDay:  7,
		Blocks:   []model.Block{{ID: "b1", Volume: 10, Earliest: 4, Latest: 4}},
		Machines: []model.Machine{{ID: "m1", DailyHours: 8, Rate: 2}},
	}
	p.SetDefaults()
	return p
}

// blackoutProblem has a cable block only machine A can work, and A is
// unavailable on days 1 to 5.
func blackoutProblem() *model.Problem {
	p := &model.Problem{
		Name:         "blackout",
		FirstDay:     1,
		LastDay:      7,
		ShiftsPerDay: 2,
		Blocks:       []model.Block{{ID: "steep", Volume: 40, RequiredSystem: "cable"}},
		Machines: []model.Machine{
			{ID: "A", Systems: []string{"cable"}, DailyHours: 8, Rate: 2, Blackout: []int{1, 2, 3, 4, 5}},
			{ID: "B", Systems: []string{"ground"}, DailyHours: 8, Rate: 2},
		},
	}
	p.SetDefaults()
	return p
}

// mediumProblem is large enough for every move kind to be available.
func mediumProblem() *model.Problem {
	p := &model.Problem{
		Name:         "medium",
		FirstDay:     1,
		LastDay:      10,
		ShiftsPerDay: 2,
		Blocks: []model.Block{
			{ID: "b1", Volume: 60, Landing: "l1"},
			{ID: "b2", Volume: 40, Landing: "l1", Predecessors: []string{"b1"}},
			{ID: "b3", Volume: 30, RequiredSystem: "cable", Landing: "l2", Value: 2},
			{ID: "b4", Volume: 50, Landing: "l2", Earliest: 3, Latest: 9},
			{ID: "b5", Volume: 25, ProductivityClass: "thin", Landing: "l1"},
		},
		Machines: []model.Machine{
			{ID: "m1", Systems: []string{"ground"}, DailyHours: 8, Rate: 2, Blackout: []int{3}},
			{ID: "m2", Systems: []string{"ground", "cable"}, DailyHours: 10, Rate: 1.5, Rates: map[string]float64{"thin": 1}},
			{ID: "m3", Systems: []string{"ground"}, DailyHours: 6, Rate: 2.5, Calendar: map[int]float64{6: 0, 7: 0}},
		},
		Landings: []model.Landing{
			{ID: "l1", Capacity: 20},
			{ID: "l2", Capacity: 15, HardCapacity: 25},
		},
		Blackouts: []model.Blackout{{Block: "b3", Days: []int{2, 5}}},
		Mobilisation: model.Mobilisation{
			Default:     map[string]float64{"m1": 3, "m2": 4, "m3": 2},
			Transitions: []model.Transition{{Machine: "m2", From: "b1", To: "b3", Cost: 7}},
		},
	}
	p.SetDefaults()
	return p
}

func solve(t *testing.T, p *model.Problem, name string, options map[string]any, opts ...Option) (*Result, *telemetry.MemoryStore) {
	t.Helper()
	store := telemetry.NewMemoryStore()
	res, err := Solve(context.Background(), p, name, options, append([]Option{WithTelemetry(store)}, opts...)...)
	require.NoError(t, err)
	return res, store
}

func iterations(t *testing.T, store *telemetry.MemoryStore) []telemetry.Record {
	t.Helper()
	recs, err := store.Query(context.Background(), telemetry.Query{Kind: telemetry.KindIteration})
	require.NoError(t, err)
	return recs
}

func moveTrace(recs []telemetry.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Move
	}
	return out
}

// newRuntime builds the runtime the driver would hand an engine, with the
// initial schedule constructed when cfg.Construct is set.
func newRuntime(t *testing.T, p *model.Problem, cfg Config) *Runtime {
	t.Helper()
	st, err := schedule.New(p, schedule.Options{Weights: cfg.Weights})
	require.NoError(t, err)
	if cfg.Construct {
		schedule.Construct(st)
	}
	return &Runtime{
		State:  st,
		Gen:    schedule.NewGenerator(rand.New(rand.NewPCG(cfg.Seed, 1))),
		Rand:   rand.New(rand.NewPCG(cfg.Seed, 2)),
		Eval:   NewBatchEvaluator(cfg.Workers),
		Config: cfg,
		Log:    logger.NopLogger{},
	}
}
