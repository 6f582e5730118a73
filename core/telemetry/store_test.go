package telemetry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/factory"
)

func sampleRecords() []Record {
	now := time.Unix(1700000000, 0).UTC()
	return []Record{
		{Timestamp: now, Kind: KindIteration, RunID: "r1", Solver: "annealing", Iteration: 0, Objective: 3, BestObjective: 3, Accepted: true, Move: "reassign:b0:pool>m0/d1/s0", Temperature: Float(2)},
		{Timestamp: now.Add(time.Second), Kind: KindIteration, RunID: "r1", Solver: "annealing", Iteration: 1, Objective: 2, BestObjective: 3},
		{Timestamp: now.Add(2 * time.Second), Kind: KindWindow, RunID: "r2", Solver: "tabu", WindowIndex: Window(1), Status: "CONVERGED"},
	}
}

func TestRecordFieldNames(t *testing.T) {
	data, err := json.Marshal(sampleRecords()[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"timestamp", "run_id", "solver", "iteration", "objective", "best_objective", "accepted", "elapsed_seconds", "move", "temperature"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "window_index")
	assert.NotContains(t, m, "status")
}

func TestQueryMatches(t *testing.T) {
	recs := sampleRecords()
	assert.True(t, Query{}.Matches(recs[0]))
	assert.False(t, Query{RunID: "r2"}.Matches(recs[0]))
	assert.True(t, Query{Window: Window(1)}.Matches(recs[2]))
	assert.False(t, Query{Window: Window(0)}.Matches(recs[2]))
	assert.False(t, Query{Window: Window(1)}.Matches(recs[0]))
	assert.False(t, Query{Start: recs[1].Timestamp}.Matches(recs[0]))
	assert.True(t, Query{Kind: KindWindow, Solver: "tabu"}.Matches(recs[2]))
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range sampleRecords() {
		require.NoError(t, s.Append(ctx, r))
	}
	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[0].Iteration)
	assert.Equal(t, 1, all[1].Iteration)
	require.NotNil(t, all[0].Temperature)
	assert.Equal(t, 2.0, *all[0].Temperature)

	r1, err := s.Query(ctx, Query{RunID: "r1", Kind: KindIteration})
	require.NoError(t, err)
	assert.Len(t, r1, 2)

	win, err := s.Query(ctx, Query{Window: Window(1)})
	require.NoError(t, err)
	require.Len(t, win, 1)
	assert.Equal(t, "CONVERGED", win[0].Status)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Len(t, s.Records(), 3)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(t.TempDir() + "/runs/telemetry.jsonl")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:telemetry_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStoreFile(t *testing.T) {
	s, err := NewSQLiteStore(t.TempDir() + "/telemetry.db")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestMultiStoreFansOut(t *testing.T) {
	a, b := NewMemoryStore(), NewMemoryStore()
	m := NewMultiStore(a, b)
	require.NoError(t, m.Append(context.Background(), sampleRecords()[0]))
	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)
	out, err := m.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.NoError(t, m.Close())
}

func TestNewStoreFromRegistry(t *testing.T) {
	s, err := NewStore(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = NewStore(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": t.TempDir() + "/t.jsonl"}})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	assert.NoError(t, s.Close())

	_, err = NewStore(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"file": "x"}})
	assert.Error(t, err)

	_, err = NewStore(factory.ModuleConfig{Type: "carrier-pigeon"})
	assert.ErrorIs(t, err, factory.ErrUnknownType)

	assert.Subset(t, Backends(), []string{"jsonl", "memory", "rotating", "sqlite"})
}
