package search

import (
	"time"

	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/schedule"
)

// Result is the outcome of one solve. It is not modified after Solve returns.
type Result struct {
	RunID              string             `json:"run_id"`
	Solver             string             `json:"solver"`
	Status             Status             `json:"status"`
	Schedule           []model.Assignment `json:"schedule"`
	Objective          float64            `json:"objective"`
	Breakdown          schedule.Breakdown `json:"breakdown"`
	MobilisationEvents int                `json:"mobilisation_events"`
	Iterations         int                `json:"iterations"`
	Accepted           int                `json:"accepted"`
	Elapsed            time.Duration      `json:"elapsed"`
	Seed               uint64             `json:"seed"`
}
