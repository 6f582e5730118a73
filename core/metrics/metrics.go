package metrics

import "time"

// IterationEvent describes one completed engine iteration.
type IterationEvent struct {
	RunID     string
	Solver    string
	Window    int // -1 outside a rolling solve
	Iteration int
	Accepted  bool
	Objective float64
	Best      float64
	Time      time.Time
}

// RunEvent summarises a finished solve.
type RunEvent struct {
	RunID      string
	Solver     string
	Status     string
	Window     int
	Objective  float64
	Events     int
	Iterations int
	Accepted   int
	Duration   time.Duration
	Time       time.Time
}

// MetricsSink records solver activity for observability purposes.
type MetricsSink interface {
	RecordIteration(ev IterationEvent) error
	RecordRun(ev RunEvent) error
}

// WindowEvent is emitted by the rolling orchestrator after each window.
type WindowEvent struct {
	RunID     string
	Index     int
	Start     int
	End       int
	LockEnd   int
	Solver    string
	Status    string
	Objective float64
	Locked    int
	Duration  time.Duration
	Err       error
	Time      time.Time
}

// WindowRecorder records rolling window summaries.
type WindowRecorder interface {
	RecordWindow(ev WindowEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordIteration(IterationEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error             { return nil }
func (NopSink) RecordWindow(WindowEvent) error       { return nil }
