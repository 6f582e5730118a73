package rolling

import (
	"time"

	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/search"
)

// WindowDiagnostics summarises the solve of one window. Objective is what the
// window added on top of its fixed input; Cumulative scores the window's best
// schedule including that input.
type WindowDiagnostics struct {
	Window
	RunID              string        `json:"run_id"`
	Status             search.Status `json:"status"`
	Objective          float64       `json:"objective"`
	Cumulative         float64       `json:"cumulative_objective"`
	MobilisationEvents int           `json:"mobilisation_events"`
	Iterations         int           `json:"iterations"`
	Accepted           int           `json:"accepted"`
	Locked             int           `json:"locked"`
	Seed               uint64        `json:"seed"`
	Elapsed            time.Duration `json:"elapsed"`
}

// Metadata describes the rolling solve as a whole.
type Metadata struct {
	RunID          string        `json:"run_id"`
	Solver         string        `json:"solver"`
	MasterDays     int           `json:"master_days"`
	SubproblemDays int           `json:"subproblem_days"`
	LockDays       int           `json:"lock_days"`
	Status         search.Status `json:"status"`
	Elapsed        time.Duration `json:"elapsed"`

	// Mean and standard deviation of the per-window objectives.
	WindowObjectiveMean   float64 `json:"window_objective_mean"`
	WindowObjectiveStdDev float64 `json:"window_objective_stddev"`
}

// Result is the outcome of a rolling solve. Objective scores the locked
// assignments over the whole problem.
type Result struct {
	LockedAssignments []model.Assignment  `json:"locked_assignments"`
	Windows           []WindowDiagnostics `json:"windows"`
	Objective         float64             `json:"objective"`
	Metadata          Metadata            `json:"metadata"`
}

// Complete reports whether every planned window was solved.
func (r *Result) Complete() bool { return r.Metadata.Status != search.StatusAborted }
