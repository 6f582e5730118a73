package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/forestplan/core/events"
	coremetrics "github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records window events
// on sinks implementing WindowRecorder. It stops when the context is canceled
// or the bus is closed; the returned channel is closed at that point.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	r, ok := sink.(coremetrics.WindowRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.WindowSolved:
					_ = r.RecordWindow(coremetrics.WindowEvent{
						RunID:     e.RunID,
						Index:     e.Index,
						Start:     e.Start,
						End:       e.End,
						LockEnd:   e.LockEnd,
						Solver:    e.Solver,
						Status:    e.Status,
						Objective: e.Objective,
						Locked:    e.Locked,
						Duration:  e.Duration,
						Time:      time.Now(),
					})
				case events.WindowFailed:
					_ = r.RecordWindow(coremetrics.WindowEvent{
						RunID:    e.RunID,
						Index:    e.Index,
						Solver:   e.Solver,
						Status:   "FAILED",
						Duration: e.Duration,
						Err:      e.Err,
						Time:     time.Now(),
					})
				}
			}
		}
	}()
	return done
}
