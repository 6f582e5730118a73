// Package telemetry records the progress of solver runs: one record per
// iteration plus run and window summaries. Stores are append-only and can be
// queried back for inspection and tests.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueryUnsupported is returned by write-only stores.
var ErrQueryUnsupported = errors.New("telemetry store does not support queries")

// Record kinds.
const (
	KindIteration = "iteration"
	KindRun       = "run"
	KindWindow    = "window"
)

// Record is one telemetry entry. The JSON field names are part of the
// external interface.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	Kind           string    `json:"kind"`
	RunID          string    `json:"run_id"`
	Solver         string    `json:"solver"`
	WindowIndex    *int      `json:"window_index,omitempty"`
	Iteration      int       `json:"iteration"`
	Objective      float64   `json:"objective"`
	BestObjective  float64   `json:"best_objective"`
	Accepted       bool      `json:"accepted"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Move           string    `json:"move,omitempty"`
	Temperature    *float64  `json:"temperature,omitempty"`
	Status         string    `json:"status,omitempty"`
}

// Window returns a pointer suitable for Record.WindowIndex.
func Window(i int) *int { return &i }

// Float returns a pointer suitable for Record.Temperature.
func Float(f float64) *float64 { return &f }

// Query filters records. Zero fields match everything.
type Query struct {
	RunID  string
	Solver string
	Kind   string
	Window *int
	Start  time.Time
	End    time.Time
}

// Matches reports whether r satisfies q.
func (q Query) Matches(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Solver != "" && r.Solver != q.Solver {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.Window != nil && (r.WindowIndex == nil || *r.WindowIndex != *q.Window) {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// MemoryStore keeps records in memory in append order.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns a copy of every stored record.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *MemoryStore) Close() error { return nil }

// MultiStore appends to every store and queries the first one.
type MultiStore struct {
	stores []Store
}

// NewMultiStore fans records out to stores.
func NewMultiStore(stores ...Store) *MultiStore { return &MultiStore{stores: stores} }

func (m *MultiStore) Append(ctx context.Context, rec Record) error {
	var firstErr error
	for _, s := range m.stores {
		if err := s.Append(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiStore) Query(ctx context.Context, q Query) ([]Record, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].Query(ctx, q)
}

func (m *MultiStore) Close() error {
	var firstErr error
	for _, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
