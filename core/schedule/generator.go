package schedule

import "math/rand/v2"

// DefaultMaxDraws bounds the proposals Next makes before giving up.
const DefaultMaxDraws = 64

// Generator proposes feasible moves. It owns its random stream so runs with
// equal seeds draw identical move sequences.
type Generator struct {
	rng      *rand.Rand
	MaxDraws int
}

// NewGenerator returns a generator drawing from rng.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, MaxDraws: DefaultMaxDraws}
}

// Next draws one feasible move. After MaxDraws failed proposals it picks
// uniformly from Enumerate, so it reports false only when the state has no
// feasible move at all.
func (g *Generator) Next(s *State) (Move, bool) {
	for i := 0; i < g.MaxDraws; i++ {
		mv, ok := g.propose(s)
		if !ok {
			continue
		}
		if s.Check(mv) == nil {
			return mv, true
		}
	}
	all := Enumerate(s)
	if len(all) == 0 {
		return Move{}, false
	}
	return all[g.rng.IntN(len(all))], true
}

// Neighbourhood draws up to n distinct feasible moves.
func (g *Generator) Neighbourhood(s *State, n int) []Move {
	out := make([]Move, 0, n)
	seen := make(map[string]struct{}, n)
	limit := n * 8
	if limit < g.MaxDraws {
		limit = g.MaxDraws
	}
	for tries := 0; len(out) < n && tries < limit; tries++ {
		mv, ok := g.propose(s)
		if !ok || s.Check(mv) != nil {
			continue
		}
		sig := mv.Signature()
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, mv)
	}
	return out
}

func (g *Generator) propose(s *State) (Move, bool) {
	switch r := g.rng.IntN(10); {
	case r < 5:
		return g.reassign(s)
	case r < 8:
		return g.swap(s)
	default:
		return g.shift(s)
	}
}

func (g *Generator) reassign(s *State) (Move, bool) {
	from, b, ok := g.occupied(s)
	if !ok || g.rng.IntN(4) == 0 {
		ib, ok := g.incomplete(s)
		if !ok {
			return Move{}, false
		}
		to, ok := g.target(s, ib)
		if !ok {
			return Move{}, false
		}
		return Move{Kind: Reassign, Block: ib, From: Unassigned, To: to}, true
	}
	if g.rng.IntN(5) == 0 {
		return Move{Kind: Reassign, Block: b, From: from, To: Unassigned}, true
	}
	to, ok := g.target(s, b)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: Reassign, Block: b, From: from, To: to}, true
}

func (g *Generator) swap(s *State) (Move, bool) {
	a, ba, ok := g.occupied(s)
	if !ok {
		return Move{}, false
	}
	c, bc, ok := g.occupied(s)
	if !ok || ba == bc {
		return Move{}, false
	}
	return Move{Kind: Swap, Block: ba, From: a, To: c}, true
}

func (g *Generator) shift(s *State) (Move, bool) {
	from, b, ok := g.occupied(s)
	if !ok {
		return Move{}, false
	}
	to := from
	if g.rng.IntN(2) == 0 {
		to.Day--
	} else {
		to.Day++
	}
	return Move{Kind: Shift, Block: b, From: from, To: to}, true
}

// occupied picks a random movable occupied slot by scanning from a random start.
func (g *Generator) occupied(s *State) (Slot, int, bool) {
	n := len(s.slots)
	if n == 0 {
		return Slot{}, 0, false
	}
	start := g.rng.IntN(n)
	for i := 0; i < n; i++ {
		j := (start + i) % n
		if s.slots[j] >= 0 && !s.fixed[j] {
			m, di, sh := s.ix.slotOf(j)
			return Slot{Machine: m, Day: s.ix.first + di, Shift: sh}, int(s.slots[j]), true
		}
	}
	return Slot{}, 0, false
}

func (g *Generator) incomplete(s *State) (int, bool) {
	nb := s.ix.nb
	if nb == 0 {
		return 0, false
	}
	start := g.rng.IntN(nb)
	for i := 0; i < nb; i++ {
		b := (start + i) % nb
		if !s.Complete(b) {
			return b, true
		}
	}
	return 0, false
}

// target draws a slot inside the placement window of block b, restricted to
// machines rated for the block on days they have hours.
func (g *Generator) target(s *State, b int) (Slot, bool) {
	ix := s.ix
	lo, hi := placementRange(s, b)
	if lo > hi {
		return Slot{}, false
	}
	var cands [][2]int
	for m := 0; m < ix.nm; m++ {
		if ix.rate[m*ix.nb+b] <= 0 {
			continue
		}
		for d := lo; d <= hi; d++ {
			di := d - ix.first
			if ix.hours[m*ix.nd+di] > 0 {
				cands = append(cands, [2]int{m, d})
			}
		}
	}
	if len(cands) == 0 {
		return Slot{}, false
	}
	c := cands[g.rng.IntN(len(cands))]
	return Slot{Machine: c[0], Day: c[1], Shift: g.rng.IntN(ix.ns)}, true
}

// placementRange is the day range in which new work on b may be placed.
func placementRange(s *State, b int) (int, int) {
	p := s.ix.p
	bc := p.Blocks[b]
	lo, hi := max(bc.Earliest, p.FirstDay), min(bc.Latest, p.LastDay)
	if p.Window != nil {
		lo, hi = max(lo, p.Window.Start), min(hi, p.Window.End)
	}
	return lo, hi
}

// Enumerate lists every feasible move in a deterministic order: moves of
// occupied slots first (removal, relocation, shift, swap), then insertions
// of incomplete blocks.
//
//gocyclo:ignore
func Enumerate(s *State) []Move {
	ix := s.ix
	var out []Move
	add := func(mv Move) {
		if s.Check(mv) == nil {
			out = append(out, mv)
		}
	}
	slotAt := func(i int) Slot {
		m, di, sh := ix.slotOf(i)
		return Slot{Machine: m, Day: ix.first + di, Shift: sh}
	}
	for a, ba := range s.slots {
		if ba < 0 || s.fixed[a] {
			continue
		}
		b := int(ba)
		from := slotAt(a)
		add(Move{Kind: Reassign, Block: b, From: from, To: Unassigned})
		lo, hi := placementRange(s, b)
		for m := 0; m < ix.nm; m++ {
			for d := lo; d <= hi; d++ {
				for sh := 0; sh < ix.ns; sh++ {
					to := Slot{Machine: m, Day: d, Shift: sh}
					if s.At(to) >= 0 {
						continue
					}
					kind := Reassign
					if m == from.Machine && sh == from.Shift && (d == from.Day+1 || d == from.Day-1) {
						kind = Shift
					}
					add(Move{Kind: kind, Block: b, From: from, To: to})
				}
			}
		}
		for c := a + 1; c < len(s.slots); c++ {
			if bc := s.slots[c]; bc >= 0 && bc != ba && !s.fixed[c] {
				add(Move{Kind: Swap, Block: b, From: from, To: slotAt(c)})
			}
		}
	}
	for b := 0; b < ix.nb; b++ {
		if s.Complete(b) {
			continue
		}
		lo, hi := placementRange(s, b)
		for m := 0; m < ix.nm; m++ {
			for d := lo; d <= hi; d++ {
				for sh := 0; sh < ix.ns; sh++ {
					to := Slot{Machine: m, Day: d, Shift: sh}
					if s.At(to) >= 0 {
						continue
					}
					add(Move{Kind: Reassign, Block: b, From: Unassigned, To: to})
				}
			}
		}
	}
	return out
}
