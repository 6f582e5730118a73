package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/forestplan/core/metrics"
)

// PromSink records solver activity in Prometheus metrics.
type PromSink struct {
	iterations *prometheus.CounterVec
	best       *prometheus.GaugeVec
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	windows    *prometheus.CounterVec
	windowDur  *prometheus.HistogramVec
}

// NewPromSink registers solver metrics on the default Prometheus registerer.
// The exposition server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.iterations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_iterations_total",
		Help: "Total number of search iterations",
	}, []string{"solver", "accepted"})); err != nil {
		return nil, err
	}
	if s.best, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solver_best_objective",
		Help: "Best objective of the current run",
	}, []string{"solver"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_runs_total",
		Help: "Finished solver runs by terminal status",
	}, []string{"solver", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_run_duration_seconds",
		Help:    "Wall time of a solver run",
		Buckets: prometheus.DefBuckets,
	}, []string{"solver"})); err != nil {
		return nil, err
	}
	if s.windows, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rolling_windows_total",
		Help: "Rolling horizon windows by outcome",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.windowDur, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rolling_window_duration_seconds",
		Help:    "Wall time spent on one rolling window",
		Buckets: prometheus.DefBuckets,
	}, []string{"solver"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordIteration counts the iteration and tracks the best objective.
func (s *PromSink) RecordIteration(ev coremetrics.IterationEvent) error {
	s.iterations.WithLabelValues(ev.Solver, strconv.FormatBool(ev.Accepted)).Inc()
	s.best.WithLabelValues(ev.Solver).Set(ev.Best)
	return nil
}

// RecordRun counts the run by status and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Solver, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Solver).Observe(ev.Duration.Seconds())
	s.best.WithLabelValues(ev.Solver).Set(ev.Objective)
	return nil
}

// RecordWindow counts the window outcome and observes its duration.
func (s *PromSink) RecordWindow(ev coremetrics.WindowEvent) error {
	status := ev.Status
	if ev.Err != nil {
		status = "FAILED"
	}
	s.windows.WithLabelValues(status).Inc()
	s.windowDur.WithLabelValues(ev.Solver).Observe(ev.Duration.Seconds())
	return nil
}
