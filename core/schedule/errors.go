package schedule

import "fmt"

// Hard constraint identifiers reported by ConstraintViolation.
const (
	ConstraintMachineHours  = "machine_hours"
	ConstraintWindow        = "window"
	ConstraintCompatibility = "compatibility"
	ConstraintOccupied      = "occupied"
	ConstraintLanding       = "landing_capacity"
	ConstraintSequencing    = "sequencing"
	ConstraintFixed         = "fixed"
	ConstraintComplete      = "complete"
	ConstraintMalformed     = "malformed"
)

// ConstraintViolation reports a move or fixed assignment breaking a hard
// constraint. The state is never mutated when it is returned.
type ConstraintViolation struct {
	Constraint string
	Block      string
	Machine    string
	Day        int
	Reason     string
}

func (e *ConstraintViolation) Error() string {
	msg := "constraint " + e.Constraint
	if e.Block != "" {
		msg += fmt.Sprintf(" block=%s", e.Block)
	}
	if e.Machine != "" {
		msg += fmt.Sprintf(" machine=%s", e.Machine)
	}
	if e.Day != 0 {
		msg += fmt.Sprintf(" day=%d", e.Day)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
