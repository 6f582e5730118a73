package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the record buffer of a Queue built with size 0.
const DefaultQueueSize = 4096

// ErrQueueFull is returned by Queue.Append when a record was dropped.
var ErrQueueFull = errors.New("telemetry queue full, record dropped")

// Queue puts a bounded buffer between a producer and a Store. Append never
// blocks: a record that does not fit is dropped and counted. One writer
// goroutine forwards records to the store in order.
type Queue struct {
	store   Store
	ch      chan Record
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	onError func(error)

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewQueue starts the writer for store. onError, when set, is called from
// the writer goroutine for every failed append.
func NewQueue(store Store, size int, onError func(error)) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:   store,
		ch:      make(chan Record, size),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		onError: onError,
	}
	go q.write()
	return q
}

func (q *Queue) write() {
	defer close(q.done)
	for rec := range q.ch {
		if q.ctx.Err() != nil {
			q.dropped.Add(1)
			continue
		}
		if err := q.store.Append(q.ctx, rec); err != nil {
			q.failed.Add(1)
			if q.onError != nil {
				q.onError(err)
			}
		}
	}
}

// Append enqueues rec without blocking.
func (q *Queue) Append(_ context.Context, rec Record) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return ErrQueueFull
	}
	select {
	case q.ch <- rec:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Query reads through to the underlying store.
func (q *Queue) Query(ctx context.Context, qr Query) ([]Record, error) {
	return q.store.Query(ctx, qr)
}

// Drain stops accepting records and waits for the writer to flush the
// buffer. When ctx ends first, the records still queued are dropped. Drain
// does not close the underlying store.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	select {
	case <-q.done:
	case <-ctx.Done():
		q.cancel()
		<-q.done
	}
	q.cancel()
}

// Close drains the queue and closes the underlying store.
func (q *Queue) Close() error {
	q.Drain(context.Background())
	return q.store.Close()
}

// Dropped returns the number of records that never reached the store.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Failed returns the number of appends the store rejected.
func (q *Queue) Failed() int64 { return q.failed.Load() }
