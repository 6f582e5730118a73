package schedule

import "sort"

// Construct greedily fills empty slots to give the search a starting point.
// Blocks are taken in precedence order and each is placed on its earliest
// feasible slots while a placement improves the objective. It returns the
// number of assignments made.
func Construct(s *State) int {
	ix := s.ix
	placed := 0
	for _, b := range constructionOrder(s) {
		lo, hi := placementRange(s, b)
		for d := lo; d <= hi && !s.Complete(b); d++ {
			for m := 0; m < ix.nm && !s.Complete(b); m++ {
				for sh := 0; sh < ix.ns && !s.Complete(b); sh++ {
					mv := Move{Kind: Reassign, Block: b, From: Unassigned, To: Slot{Machine: m, Day: d, Shift: sh}}
					if s.Check(mv) != nil || s.Delta(mv) <= 0 {
						continue
					}
					if _, err := s.Apply(mv); err == nil {
						placed++
					}
				}
			}
		}
	}
	return placed
}

// constructionOrder is a topological order of the sequencing graph; ready
// blocks are ordered by earliest day, then ID.
func constructionOrder(s *State) []int {
	ix := s.ix
	indeg := make([]int, ix.nb)
	for _, pr := range ix.pairs {
		indeg[pr.succ]++
	}
	less := func(a, b int) bool {
		ba, bb := ix.p.Blocks[a], ix.p.Blocks[b]
		if ba.Earliest != bb.Earliest {
			return ba.Earliest < bb.Earliest
		}
		return ba.ID < bb.ID
	}
	var ready []int
	for b := 0; b < ix.nb; b++ {
		if indeg[b] == 0 {
			ready = append(ready, b)
		}
	}
	order := make([]int, 0, ix.nb)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		b := ready[0]
		ready = ready[1:]
		order = append(order, b)
		for _, k := range ix.asPred[b] {
			succ := ix.pairs[k].succ
			indeg[succ]--
			if indeg[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}
	return order
}
