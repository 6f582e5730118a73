package events

import "time"

// WindowSolved is published after a window's locks are appended.
type WindowSolved struct {
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
}

// WindowFailed is published when a window aborts the rolling solve.
type WindowFailed struct {
	RunID      string
	Index      int
	Solver     string
	Constraint string
	Block      string
	Err        error
	Duration   time.Duration
}
