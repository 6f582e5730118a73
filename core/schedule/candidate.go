package schedule

import "math"

// Candidate is an evaluated move at a position in a batch.
type Candidate struct {
	Index     int
	Move      Move
	Gain      float64
	Events    int
	BlockID   string
	Signature string
}

func newCandidate(ix *index, v view, w Weights, i int, mv Move) Candidate {
	e := ix.evaluate(v, w, mv)
	b := mv.Block
	if mv.Kind == Swap && len(e.changes) > 0 {
		b = int(e.changes[0].from)
	}
	id := ""
	if b >= 0 && b < ix.nb {
		id = ix.p.Blocks[b].ID
	}
	return Candidate{
		Index:     i,
		Move:      mv,
		Gain:      e.gain,
		Events:    e.eventsDelta,
		BlockID:   id,
		Signature: mv.Signature(),
	}
}

// Compare orders candidates: higher gain, fewer mobilisation events, lower
// block ID, lower signature, lower batch index. It returns a negative value
// when a ranks before b.
func Compare(a, b Candidate) int {
	if math.Abs(a.Gain-b.Gain) > objectiveEpsilon {
		if a.Gain > b.Gain {
			return -1
		}
		return 1
	}
	switch {
	case a.Events != b.Events:
		return a.Events - b.Events
	case a.BlockID != b.BlockID:
		if a.BlockID < b.BlockID {
			return -1
		}
		return 1
	case a.Signature != b.Signature:
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	return a.Index - b.Index
}

// Best returns the first candidate under Compare among those accepted by keep.
// A nil keep accepts everything.
func Best(cands []Candidate, keep func(Candidate) bool) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range cands {
		if keep != nil && !keep(c) {
			continue
		}
		if !found || Compare(c, best) < 0 {
			best, found = c, true
		}
	}
	return best, found
}
