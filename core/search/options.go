package search

import (
	"github.com/kilianp07/forestplan/core/logger"
	"github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/telemetry"
)

// Option customises a single Solve or Run call.
type Option func(*runOptions)

type runOptions struct {
	log    logger.Logger
	store  telemetry.Store
	sink   metrics.MetricsSink
	fixed  []model.Assignment
	window int
	runID  string

	queueSize int
}

func collect(opts []Option) runOptions {
	ro := runOptions{window: -1}
	for _, o := range opts {
		o(&ro)
	}
	ro.log = logger.OrNop(ro.log)
	if ro.store == nil {
		ro.store = telemetry.NopStore{}
	}
	if ro.sink == nil {
		ro.sink = metrics.NopSink{}
	}
	return ro
}

// WithLogger sets the logger used by the driver and the engine.
func WithLogger(l logger.Logger) Option { return func(o *runOptions) { o.log = l } }

// WithTelemetry appends one record per iteration plus a run summary to s.
func WithTelemetry(s telemetry.Store) Option { return func(o *runOptions) { o.store = s } }

// WithMetrics reports iterations and the run summary to sink.
func WithMetrics(sink metrics.MetricsSink) Option { return func(o *runOptions) { o.sink = sink } }

// WithFixed pre-applies assignments that the search may not move.
func WithFixed(a []model.Assignment) Option { return func(o *runOptions) { o.fixed = a } }

// WithWindow tags telemetry with a rolling window index.
func WithWindow(i int) Option { return func(o *runOptions) { o.window = i } }

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option { return func(o *runOptions) { o.runID = id } }

// WithTelemetryQueue sets how many records may wait for the telemetry store
// before new ones are dropped. Zero uses telemetry.DefaultQueueSize.
func WithTelemetryQueue(n int) Option { return func(o *runOptions) { o.queueSize = n } }
