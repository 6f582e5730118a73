package rolling

import "fmt"

// InfeasibleWindowError reports a window whose fixed input breaks a hard
// constraint. No later window is attempted.
type InfeasibleWindowError struct {
	Window     int
	Constraint string
	Block      string
	Err        error
}

func (e *InfeasibleWindowError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("window %d infeasible: %s", e.Window, e.Constraint)
	}
	return fmt.Sprintf("window %d infeasible: %s (block %s)", e.Window, e.Constraint, e.Block)
}

func (e *InfeasibleWindowError) Unwrap() error { return e.Err }
