package schedule

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/model"
)

func smallProblem() *model.Problem {
	p := &model.Problem{
		Name:         "small",
		FirstDay:     1,
		LastDay:      5,
		ShiftsPerDay: 2,
		Blocks: []model.Block{
			{ID: "b1", Volume: 40, Landing: "l1"},
			{ID: "b2", Volume: 30, Landing: "l1", Predecessors: []string{"b1"}},
			{ID: "b3", Volume: 20, RequiredSystem: "cable", Landing: "l2"},
		},
		Machines: []model.Machine{
			{ID: "m1", Systems: []string{"ground"}, DailyHours: 8, Rate: 2, Blackout: []int{3}},
			{ID: "m2", Systems: []string{"ground", "cable"}, DailyHours: 10, Rate: 1.5},
		},
		Landings: []model.Landing{
			{ID: "l1", Capacity: 10},
			{ID: "l2", Capacity: 8, HardCapacity: 10},
		},
		Blackouts: []model.Blackout{{Block: "b3", Days: []int{2}}},
		Mobilisation: model.Mobilisation{
			Default:     map[string]float64{"m1": 3, "m2": 4},
			Transitions: []model.Transition{{Machine: "m2", From: "b1", To: "b3", Cost: 7}},
		},
	}
	p.SetDefaults()
	return p
}

func newSmallState(t *testing.T, opts Options) *State {
	t.Helper()
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	s, err := New(smallProblem(), opts)
	require.NoError(t, err)
	return s
}

func violation(t *testing.T, err error) *ConstraintViolation {
	t.Helper()
	var cv *ConstraintViolation
	require.True(t, errors.As(err, &cv), "expected constraint violation, got %v", err)
	return cv
}

func TestNewRejectsInvalidFixed(t *testing.T) {
	cases := []struct {
		name       string
		fixed      []model.Assignment
		constraint string
	}{
		{"machine blackout", []model.Assignment{{Block: "b1", Machine: "m1", Day: 3}}, ConstraintMachineHours},
		{"incompatible", []model.Assignment{{Block: "b3", Machine: "m1", Day: 1}}, ConstraintCompatibility},
		{"same slot", []model.Assignment{
			{Block: "b1", Machine: "m1", Day: 1},
			{Block: "b2", Machine: "m1", Day: 1},
		}, ConstraintOccupied},
		{"hard landing", []model.Assignment{
			{Block: "b3", Machine: "m2", Day: 1, Shift: 0},
			{Block: "b3", Machine: "m2", Day: 1, Shift: 1},
		}, ConstraintLanding},
		{"unknown block", []model.Assignment{{Block: "bx", Machine: "m1", Day: 1}}, ConstraintMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(smallProblem(), Options{Weights: DefaultWeights(), Fixed: tc.fixed})
			require.Error(t, err)
			assert.Equal(t, tc.constraint, violation(t, err).Constraint)
		})
	}
}

func TestHardSequencingRejectsFixedSuccessor(t *testing.T) {
	_, err := New(smallProblem(), Options{
		Weights:        DefaultWeights(),
		HardSequencing: true,
		Fixed:          []model.Assignment{{Block: "b2", Machine: "m1", Day: 1}},
	})
	assert.Equal(t, ConstraintSequencing, violation(t, err).Constraint)
}

func TestFixedAssignmentsAreImmovable(t *testing.T) {
	s := newSmallState(t, Options{Fixed: []model.Assignment{{Block: "b1", Machine: "m1", Day: 1}}})
	from := Slot{Machine: 0, Day: 1}
	assert.True(t, s.IsFixed(from))
	_, err := s.Apply(Move{Kind: Reassign, Block: 0, From: from, To: Unassigned})
	assert.Equal(t, ConstraintFixed, violation(t, err).Constraint)
	assert.Len(t, s.Fixed(), 1)
}

func TestCheckRejectsHardViolations(t *testing.T) {
	s := newSmallState(t, Options{})
	cases := []struct {
		name       string
		move       Move
		constraint string
	}{
		{"machine blackout", Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 0, Day: 3}}, ConstraintMachineHours},
		{"incompatible", Move{Kind: Reassign, Block: 2, From: Unassigned, To: Slot{Machine: 0, Day: 1}}, ConstraintCompatibility},
		{"outside horizon", Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 0, Day: 9}}, ConstraintMalformed},
		{"pool to pool", Move{Kind: Reassign, Block: 0, From: Unassigned, To: Unassigned}, ConstraintMalformed},
		{"not at source", Move{Kind: Reassign, Block: 0, From: Slot{Machine: 0, Day: 1}, To: Unassigned}, ConstraintMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.constraint, violation(t, s.Check(tc.move)).Constraint)
		})
	}

	_, err := s.Apply(Move{Kind: Reassign, Block: 2, From: Unassigned, To: Slot{Machine: 1, Day: 1, Shift: 0}})
	require.NoError(t, err)
	err = s.Check(Move{Kind: Reassign, Block: 2, From: Unassigned, To: Slot{Machine: 1, Day: 1, Shift: 1}})
	assert.Equal(t, ConstraintLanding, violation(t, err).Constraint)
	err = s.Check(Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 1, Day: 1, Shift: 0}})
	assert.Equal(t, ConstraintOccupied, violation(t, err).Constraint)
}

func TestInsertionIntoCompleteBlockRejected(t *testing.T) {
	s := newSmallState(t, Options{})
	// b1 needs 40: five m1 slots of 8.
	days := []int{1, 2, 4, 5}
	for _, d := range days {
		for sh := 0; sh < 2 && !s.Complete(0); sh++ {
			_, err := s.Apply(Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 0, Day: d, Shift: sh}})
			require.NoError(t, err)
		}
	}
	require.True(t, s.Complete(0))
	err := s.Check(Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 1, Day: 1}})
	assert.Equal(t, ConstraintComplete, violation(t, err).Constraint)
}

func TestActiveWindowLimitsPlacement(t *testing.T) {
	p := smallProblem().Restrict(2, 3)
	s, err := New(p, Options{Weights: DefaultWeights(), Fixed: []model.Assignment{{Block: "b1", Machine: "m1", Day: 1}}})
	require.NoError(t, err)
	err = s.Check(Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 1, Day: 4}})
	assert.Equal(t, ConstraintWindow, violation(t, err).Constraint)
	assert.NoError(t, s.Check(Move{Kind: Reassign, Block: 0, From: Unassigned, To: Slot{Machine: 1, Day: 2}}))
	assert.True(t, s.Feasible())
}

func TestApplyRevertRestoresStateExactly(t *testing.T) {
	s := newSmallState(t, Options{})
	Construct(s)
	gen := NewGenerator(rand.New(rand.NewPCG(7, 1)))
	for i := 0; i < 300; i++ {
		mv, ok := gen.Next(s)
		if !ok {
			continue
		}
		before := s.Clone()
		u, err := s.Apply(mv)
		require.NoError(t, err)
		s.Revert(u)
		require.Equal(t, before, s, "move %s", mv)
		require.Equal(t, math.Float64bits(before.Objective()), math.Float64bits(s.Objective()))
		// keep walking so later moves start from varied states
		_, err = s.Apply(mv)
		require.NoError(t, err)
	}
}

func TestUndoStackUnwindsInReverse(t *testing.T) {
	s := newSmallState(t, Options{})
	start := s.Clone()
	gen := NewGenerator(rand.New(rand.NewPCG(3, 3)))
	var stack []Undo
	for i := 0; i < 50; i++ {
		mv, ok := gen.Next(s)
		if !ok {
			continue
		}
		u, err := s.Apply(mv)
		require.NoError(t, err)
		stack = append(stack, u)
	}
	require.NotEmpty(t, stack)
	for i := len(stack) - 1; i >= 0; i-- {
		s.Revert(stack[i])
	}
	assert.Equal(t, start, s)
}

func TestDeltaMatchesObjectiveChange(t *testing.T) {
	s := newSmallState(t, Options{})
	gen := NewGenerator(rand.New(rand.NewPCG(11, 5)))
	for i := 0; i < 400; i++ {
		mv, ok := gen.Next(s)
		if !ok {
			continue
		}
		before := s.Objective()
		delta := s.Delta(mv)
		_, err := s.Apply(mv)
		require.NoError(t, err)
		require.Equal(t, before+delta, s.Objective(), "move %s", mv)
		require.InDelta(t, Evaluate(s).Total, s.Objective(), 1e-6, "move %s", mv)
	}
}

func TestEvaluateBreakdown(t *testing.T) {
	s := newSmallState(t, Options{Fixed: []model.Assignment{
		{Block: "b1", Machine: "m2", Day: 1, Shift: 0},
		{Block: "b3", Machine: "m2", Day: 2, Shift: 0},
		{Block: "b2", Machine: "m1", Day: 1, Shift: 0},
	}})
	br := Evaluate(s)
	w := DefaultWeights()
	// m2 moves b1 -> b3 at the transition cost.
	assert.InDelta(t, 7*w.Mobilisation, br.Mobilisation, 1e-12)
	assert.Equal(t, 1, br.Events)
	// b3 on its blackout day.
	assert.InDelta(t, 1*w.Blackout, br.Blackout, 1e-12)
	// b2 works while b1 is incomplete.
	assert.InDelta(t, 1*w.Sequencing, br.Sequencing, 1e-12)
	// l1 on day 1 receives 7.5 + 8 against a capacity of 10.
	assert.InDelta(t, 5.5*w.Landing, br.Landing, 1e-12)
	assert.InDelta(t, (7.5+7.5+8)*w.Production, br.Production, 1e-12)
	assert.InDelta(t, br.Total, s.Objective(), 1e-9)
}

func TestAssignmentsOrderedByDayShiftMachine(t *testing.T) {
	s := newSmallState(t, Options{})
	for _, sl := range []Slot{{Machine: 1, Day: 2}, {Machine: 0, Day: 1, Shift: 1}, {Machine: 1, Day: 1}} {
		_, err := s.Apply(Move{Kind: Reassign, Block: 0, From: Unassigned, To: sl})
		require.NoError(t, err)
	}
	as := s.Assignments()
	require.Len(t, as, 3)
	assert.Equal(t, model.Assignment{Block: "b1", Machine: "m2", Day: 1, Shift: 0, Hours: 5, Quantity: 7.5}, as[0])
	assert.Equal(t, "m1", as[1].Machine)
	assert.Equal(t, 1, as[1].Shift)
	assert.Equal(t, 2, as[2].Day)
}
