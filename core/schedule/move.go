package schedule

import "fmt"

// MoveKind identifies a neighbourhood operator.
type MoveKind int

const (
	// Reassign moves one block-day unit between slots. Either end may be
	// Unassigned, which inserts from or removes to the unscheduled pool.
	Reassign MoveKind = iota
	// Swap exchanges the blocks of two occupied slots.
	Swap
	// Shift moves an assignment to the adjacent day on the same machine and shift.
	Shift
)

func (k MoveKind) String() string {
	switch k {
	case Reassign:
		return "reassign"
	case Swap:
		return "swap"
	case Shift:
		return "shift"
	default:
		return "unknown"
	}
}

// Slot addresses one machine shift. Day is absolute.
type Slot struct {
	Machine int
	Day     int
	Shift   int
}

// Unassigned is the pool of work not placed in any slot.
var Unassigned = Slot{Machine: -1}

// IsUnassigned reports whether the slot denotes the unscheduled pool.
func (s Slot) IsUnassigned() bool { return s.Machine < 0 }

func (s Slot) String() string {
	if s.IsUnassigned() {
		return "pool"
	}
	return fmt.Sprintf("m%d/d%d/s%d", s.Machine, s.Day, s.Shift)
}

// Move is a candidate transformation of a schedule. Block is the block
// carried from From to To; for swaps it is the block found at From.
type Move struct {
	Kind  MoveKind
	Block int
	From  Slot
	To    Slot
}

// Inverse returns the move that undoes m.
func (m Move) Inverse() Move {
	switch m.Kind {
	case Swap:
		return m
	default:
		return Move{Kind: m.Kind, Block: m.Block, From: m.To, To: m.From}
	}
}

// Signature is a stable identifier used by tabu lists and tie-breaks. Swaps
// are normalised so both orientations share a signature.
func (m Move) Signature() string {
	if m.Kind == Swap {
		a, b := m.From, m.To
		if less(b, a) {
			a, b = b, a
		}
		return fmt.Sprintf("swap:%s<>%s", a, b)
	}
	return fmt.Sprintf("%s:b%d:%s>%s", m.Kind, m.Block, m.From, m.To)
}

func (m Move) String() string { return m.Signature() }

func less(a, b Slot) bool {
	if a.Machine != b.Machine {
		return a.Machine < b.Machine
	}
	if a.Day != b.Day {
		return a.Day < b.Day
	}
	return a.Shift < b.Shift
}
