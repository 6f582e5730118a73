package rolling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/search"
)

func TestBuildPlan(t *testing.T) {
	cases := []struct {
		name             string
		master, sub, lck int
		want             []Window
	}{
		{"two disjoint windows", 14, 7, 7, []Window{
			{Index: 0, Start: 1, End: 7, LockEnd: 7},
			{Index: 1, Start: 8, End: 14, LockEnd: 14},
		}},
		{"overlapping", 10, 5, 3, []Window{
			{Index: 0, Start: 1, End: 5, LockEnd: 3},
			{Index: 1, Start: 4, End: 8, LockEnd: 6},
			{Index: 2, Start: 7, End: 10, LockEnd: 10},
		}},
		{"sub longer than master", 4, 7, 2, []Window{
			{Index: 0, Start: 1, End: 4, LockEnd: 4},
		}},
		{"one day windows", 3, 1, 1, []Window{
			{Index: 0, Start: 1, End: 1, LockEnd: 1},
			{Index: 1, Start: 2, End: 2, LockEnd: 2},
			{Index: 2, Start: 3, End: 3, LockEnd: 3},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := BuildPlan(tc.master, tc.sub, tc.lck)
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan.Windows)
		})
	}
}

func TestPlanLockRegionsTileHorizon(t *testing.T) {
	for _, dims := range [][3]int{{30, 7, 3}, {21, 10, 7}, {9, 9, 1}, {100, 14, 5}} {
		plan, err := BuildPlan(dims[0], dims[1], dims[2])
		require.NoError(t, err)
		next := 1
		for _, w := range plan.Windows {
			assert.Equal(t, next, w.Start, "%v", dims)
			assert.LessOrEqual(t, w.LockEnd, w.End)
			next = w.LockEnd + 1
		}
		assert.Equal(t, dims[0]+1, next, "%v", dims)
	}
}

func TestBuildPlanRejectsInvalidDimensions(t *testing.T) {
	cases := []struct {
		master, sub, lck int
		key              string
	}{
		{0, 7, 7, "master_days"},
		{14, 0, 1, "subproblem_days"},
		{14, 7, 0, "lock_days"},
		{14, 7, 8, "lock_days"},
	}
	for _, tc := range cases {
		_, err := BuildPlan(tc.master, tc.sub, tc.lck)
		var ce *search.ConfigurationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, tc.key, ce.Key)
	}
}

func TestPlanOffset(t *testing.T) {
	plan, err := BuildPlan(6, 4, 2)
	require.NoError(t, err)
	moved := plan.Offset(101)
	assert.Equal(t, Window{Index: 0, Start: 101, End: 104, LockEnd: 102}, moved.Windows[0])
	assert.Equal(t, 1, plan.Windows[0].Start)
}
