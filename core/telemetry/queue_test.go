package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore blocks every append until the gate is closed.
type gatedStore struct {
	*MemoryStore
	gate chan struct{}
}

func (g *gatedStore) Append(ctx context.Context, rec Record) error {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.MemoryStore.Append(ctx, rec)
}

type failingStore struct{ NopStore }

func (failingStore) Append(context.Context, Record) error { return errors.New("disk full") }

func TestQueueForwardsInOrder(t *testing.T) {
	mem := NewMemoryStore()
	q := NewQueue(mem, 0, nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Append(context.Background(), Record{Kind: KindIteration, Iteration: i}))
	}
	q.Drain(context.Background())

	recs := mem.Records()
	require.Len(t, recs, 100)
	for i, r := range recs {
		assert.Equal(t, i, r.Iteration)
	}
	assert.Zero(t, q.Dropped())

	got, err := q.Query(context.Background(), Query{Kind: KindIteration})
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestQueueDropsWhenFull(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), gate: make(chan struct{})}
	q := NewQueue(store, 2, nil)

	start := time.Now()
	var full int
	for i := 0; i < 20; i++ {
		if err := q.Append(context.Background(), Record{Iteration: i}); errors.Is(err, ErrQueueFull) {
			full++
		}
	}
	assert.Less(t, time.Since(start), time.Second, "append must not wait on the store")
	assert.Positive(t, full)
	assert.Equal(t, int64(full), q.Dropped())

	close(store.gate)
	q.Drain(context.Background())
	assert.Len(t, store.Records(), 20-full)
	assert.ErrorIs(t, q.Append(context.Background(), Record{}), ErrQueueFull)
}

func TestQueueDrainGivesUpAtDeadline(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), gate: make(chan struct{})}
	q := NewQueue(store, 8, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Append(context.Background(), Record{Iteration: i}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	q.Drain(ctx)

	assert.Empty(t, store.Records())
	assert.Equal(t, int64(5), q.Dropped()+q.Failed())
}

func TestQueueReportsStoreErrors(t *testing.T) {
	var mu sync.Mutex
	var errs []error
	var calls atomic.Int32
	q := NewQueue(failingStore{}, 4, func(err error) {
		calls.Add(1)
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Append(context.Background(), Record{}))
	}
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(3), q.Failed())
	require.Len(t, errs, 3)
	assert.EqualError(t, errs[0], "disk full")
}
