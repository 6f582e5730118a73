package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/forestplan/core/schedule"
)

// BatchEvaluator scores a batch of moves. With more than one worker the
// deltas are computed concurrently on a read-only snapshot; results land in
// a slice indexed by batch position so the selection is independent of the
// worker count.
type BatchEvaluator struct {
	workers int
}

// NewBatchEvaluator returns an evaluator using up to workers goroutines.
func NewBatchEvaluator(workers int) *BatchEvaluator {
	if workers < 1 {
		workers = 1
	}
	return &BatchEvaluator{workers: workers}
}

// Workers returns the configured worker count.
func (b *BatchEvaluator) Workers() int { return b.workers }

// Evaluate returns one candidate per move, in batch order. The context is
// not consulted mid-batch; cancellation is handled at iteration boundaries.
func (b *BatchEvaluator) Evaluate(_ context.Context, s *schedule.State, moves []schedule.Move) ([]schedule.Candidate, error) {
	out := make([]schedule.Candidate, len(moves))
	if b.workers == 1 || len(moves) < 2 {
		for i, mv := range moves {
			out[i] = s.Candidate(i, mv)
		}
		return out, nil
	}
	sn := s.Snapshot(moves)
	chunk := (len(moves) + b.workers - 1) / b.workers
	var g errgroup.Group
	g.SetLimit(b.workers)
	for lo := 0; lo < len(moves); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(moves))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				out[i] = sn.Candidate(i, moves[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Best evaluates moves and returns the top candidate accepted by keep.
func (b *BatchEvaluator) Best(ctx context.Context, s *schedule.State, moves []schedule.Move, keep func(schedule.Candidate) bool) (schedule.Candidate, bool, error) {
	cands, err := b.Evaluate(ctx, s, moves)
	if err != nil {
		return schedule.Candidate{}, false, err
	}
	c, ok := schedule.Best(cands, keep)
	return c, ok, nil
}
