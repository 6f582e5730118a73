package schedule

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNeverEmitsInfeasibleMoves(t *testing.T) {
	for _, hard := range []bool{false, true} {
		s := newSmallState(t, Options{HardSequencing: hard})
		Construct(s)
		gen := NewGenerator(rand.New(rand.NewPCG(5, 9)))
		for i := 0; i < 500; i++ {
			mv, ok := gen.Next(s)
			if !ok {
				continue
			}
			require.NoError(t, s.Check(mv))
			_, err := s.Apply(mv)
			require.NoError(t, err)
			require.NoError(t, s.Verify(), "move %s", mv)
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	draw := func() []string {
		s := newSmallState(t, Options{})
		Construct(s)
		gen := NewGenerator(rand.New(rand.NewPCG(42, 0)))
		var sigs []string
		for i := 0; i < 100; i++ {
			mv, ok := gen.Next(s)
			if !ok {
				continue
			}
			sigs = append(sigs, mv.Signature())
			_, err := s.Apply(mv)
			require.NoError(t, err)
		}
		return sigs
	}
	assert.Equal(t, draw(), draw())
}

func TestNeighbourhoodIsDistinctAndFeasible(t *testing.T) {
	s := newSmallState(t, Options{})
	Construct(s)
	gen := NewGenerator(rand.New(rand.NewPCG(1, 1)))
	moves := gen.Neighbourhood(s, 25)
	require.NotEmpty(t, moves)
	seen := map[string]bool{}
	for _, mv := range moves {
		assert.False(t, seen[mv.Signature()], "duplicate %s", mv)
		seen[mv.Signature()] = true
		assert.NoError(t, s.Check(mv))
	}
}

func TestEnumerateListsOnlyFeasibleMoves(t *testing.T) {
	s := newSmallState(t, Options{})
	Construct(s)
	moves := Enumerate(s)
	require.NotEmpty(t, moves)
	kinds := map[MoveKind]int{}
	for _, mv := range moves {
		require.NoError(t, s.Check(mv), "move %s", mv)
		kinds[mv.Kind]++
	}
	assert.Positive(t, kinds[Reassign])
	assert.Equal(t, moves, Enumerate(s))
}

func TestMoveInverseAndSignature(t *testing.T) {
	a := Slot{Machine: 0, Day: 2, Shift: 1}
	b := Slot{Machine: 1, Day: 3}
	mv := Move{Kind: Reassign, Block: 4, From: a, To: b}
	assert.Equal(t, Move{Kind: Reassign, Block: 4, From: b, To: a}, mv.Inverse())
	assert.Equal(t, "reassign:b4:m0/d2/s1>m1/d3/s0", mv.Signature())
	assert.Equal(t, "reassign:b4:pool>m1/d3/s0", Move{Kind: Reassign, Block: 4, From: Unassigned, To: b}.Signature())

	sw := Move{Kind: Swap, From: b, To: a}
	assert.Equal(t, sw, sw.Inverse())
	assert.Equal(t, sw.Signature(), Move{Kind: Swap, From: a, To: b}.Signature())
}

func TestConstructRespectsHardSequencing(t *testing.T) {
	p := smallProblem()
	p.Landings[0].Capacity = 100
	s, err := New(p, Options{Weights: DefaultWeights(), HardSequencing: true})
	require.NoError(t, err)
	placed := Construct(s)
	require.Positive(t, placed)
	require.NoError(t, s.Verify())

	done := -1
	cum := 0.0
	for _, a := range s.Assignments() {
		if a.Block == "b1" {
			cum += a.Quantity
			if cum >= 40 && done < 0 {
				done = a.Day
			}
		}
	}
	successors := 0
	for _, a := range s.Assignments() {
		if a.Block == "b2" {
			successors++
			require.GreaterOrEqual(t, done, 0)
			assert.Greater(t, a.Day, done)
		}
	}
	assert.Positive(t, successors)
}

func TestConstructAvoidsBlackoutPenalty(t *testing.T) {
	s := newSmallState(t, Options{})
	Construct(s)
	for _, a := range s.Assignments() {
		if a.Block == "b3" {
			assert.NotEqual(t, 2, a.Day)
		}
	}
}

func TestTargetDrawsOnlyCapableMachineDays(t *testing.T) {
	s := newSmallState(t, Options{})
	gen := NewGenerator(rand.New(rand.NewPCG(3, 3)))
	for i := 0; i < 200; i++ {
		sl, ok := gen.target(s, 2)
		require.True(t, ok)
		assert.Equal(t, 1, sl.Machine, "b3 needs the cable machine")

		sl, ok = gen.target(s, 0)
		require.True(t, ok)
		if sl.Machine == 0 {
			assert.NotEqual(t, 3, sl.Day, "m1 is blacked out on day 3")
		}
	}
}

func TestNextFallsBackToEnumerate(t *testing.T) {
	s := newSmallState(t, Options{})
	gen := NewGenerator(rand.New(rand.NewPCG(8, 1)))
	gen.MaxDraws = 0
	for i := 0; i < 20; i++ {
		mv, ok := gen.Next(s)
		require.True(t, ok)
		require.NoError(t, s.Check(mv))
		_, err := s.Apply(mv)
		require.NoError(t, err)
	}
}
