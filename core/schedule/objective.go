package schedule

import "math"

// Weights scale the objective terms. Production is rewarded, every other
// term is a penalty.
type Weights struct {
	Production   float64 `json:"production" yaml:"production"`
	Mobilisation float64 `json:"mobilisation" yaml:"mobilisation"`
	Blackout     float64 `json:"blackout" yaml:"blackout"`
	Sequencing   float64 `json:"sequencing" yaml:"sequencing"`
	Landing      float64 `json:"landing" yaml:"landing"`
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{Production: 1, Mobilisation: 1, Blackout: 100, Sequencing: 100, Landing: 10}
}

// view is the read surface the delta computation needs. State and Snapshot
// both implement it so sequential and batched evaluation share one code path.
type view interface {
	block(slot int) int32
	produced(b int) float64
	valueTerm(b int) float64
	completion(b int) int
	daily(b, di int) float64
	count(b, di int) int32
	load(l, di int) float64
	overflow(l, di int) float64
	mob(m int) (float64, int)
	pairTerm(k int) float64
	totals() (objective float64, events, blackouts int)
}

type change struct {
	slot, m, di int
	from, to    int32
}

type mobTerm struct {
	m      int
	cost   float64
	events int
}

type blockTerm struct {
	b          int
	produced   float64
	value      float64
	completion int
}

type dayTerm struct {
	b, di int
	daily float64
	count int32
}

type loadTerm struct {
	l, di    int
	load     float64
	overflow float64
}

type pairTermValue struct {
	k    int
	term float64
}

// effect lists the new value of every aggregate a move touches. The same
// shape carries old values in an Undo.
type effect struct {
	changes   []change
	machines  []mobTerm
	blocks    []blockTerm
	days      []dayTerm
	loads     []loadTerm
	pairs     []pairTermValue
	objective float64
	events    int
	blackouts int

	gain        float64
	eventsDelta int
}

// changes lists the slot writes of a move.
func (ix *index) changes(v view, mv Move) []change {
	switch mv.Kind {
	case Swap:
		a, ma, da := ix.locate(mv.From)
		c, mc, dc := ix.locate(mv.To)
		ba, bc := v.block(a), v.block(c)
		return []change{
			{slot: a, m: ma, di: da, from: ba, to: bc},
			{slot: c, m: mc, di: dc, from: bc, to: ba},
		}
	default:
		out := make([]change, 0, 2)
		if !mv.From.IsUnassigned() {
			s, m, di := ix.locate(mv.From)
			out = append(out, change{slot: s, m: m, di: di, from: int32(mv.Block), to: -1})
		}
		if !mv.To.IsUnassigned() {
			s, m, di := ix.locate(mv.To)
			out = append(out, change{slot: s, m: m, di: di, from: v.block(s), to: int32(mv.Block)})
		}
		return out
	}
}

func (ix *index) locate(s Slot) (slot, m, di int) {
	di = s.Day - ix.first
	return ix.slotIndex(s.Machine, di, s.Shift), s.Machine, di
}

// evaluate computes the effect of mv against v. It never mutates v.
//
//gocyclo:ignore
func (ix *index) evaluate(v view, w Weights, mv Move) *effect {
	e := &effect{changes: ix.changes(v, mv)}
	objective, events, blackouts := v.totals()

	overlay := func(slot int) int32 {
		for _, c := range e.changes {
			if c.slot == slot {
				return c.to
			}
		}
		return v.block(slot)
	}

	gain := 0.0
	for _, c := range e.changes {
		if hasMachine(e.machines, c.m) {
			continue
		}
		cost, ev := ix.machineMob(c.m, overlay)
		oc, oe := v.mob(c.m)
		e.machines = append(e.machines, mobTerm{m: c.m, cost: cost, events: ev})
		gain -= w.Mobilisation * (cost - oc)
		e.eventsDelta += ev - oe
	}

	blackDelta := 0
	for _, c := range e.changes {
		if c.from >= 0 {
			b := int(c.from)
			q := ix.quantity(c.m, c.di, b)
			e.addProduction(v, b, c.di, -q, -1)
			if l := ix.landing[b]; l >= 0 {
				e.addLoad(v, l, c.di, -q)
			}
			if ix.black[b*ix.nd+c.di] {
				blackDelta--
			}
		}
		if c.to >= 0 {
			b := int(c.to)
			q := ix.quantity(c.m, c.di, b)
			e.addProduction(v, b, c.di, q, 1)
			if l := ix.landing[b]; l >= 0 {
				e.addLoad(v, l, c.di, q)
			}
			if ix.black[b*ix.nd+c.di] {
				blackDelta++
			}
		}
	}

	for i := range e.blocks {
		bt := &e.blocks[i]
		bt.value = ix.value[bt.b] * math.Min(bt.produced, ix.volume[bt.b])
		bt.completion = ix.completionOf(bt.b, func(di int) float64 { return e.dailyAt(v, bt.b, di) })
		gain += w.Production * (bt.value - v.valueTerm(bt.b))
	}

	for i := range e.loads {
		lt := &e.loads[i]
		lt.overflow = ix.overflowOf(lt.l, lt.load)
		gain -= w.Landing * (lt.overflow - v.overflow(lt.l, lt.di))
	}

	for _, bt := range e.blocks {
		for _, ks := range [2][]int{ix.asPred[bt.b], ix.asSucc[bt.b]} {
			for _, k := range ks {
				if hasPair(e.pairs, k) {
					continue
				}
				term := ix.pairTerm(k,
					func(b int) int { return e.completionAt(v, b) },
					func(b, di int) int32 { return e.countAt(v, b, di) })
				e.pairs = append(e.pairs, pairTermValue{k: k, term: term})
				gain -= w.Sequencing * (term - v.pairTerm(k))
			}
		}
	}

	gain -= w.Blackout * float64(blackDelta)
	e.gain = gain
	e.objective = objective + gain
	e.events = events + e.eventsDelta
	e.blackouts = blackouts + blackDelta
	return e
}

func (e *effect) addProduction(v view, b, di int, q float64, n int32) {
	found := false
	for i := range e.blocks {
		if e.blocks[i].b == b {
			e.blocks[i].produced += q
			found = true
			break
		}
	}
	if !found {
		e.blocks = append(e.blocks, blockTerm{b: b, produced: v.produced(b) + q})
	}
	for i := range e.days {
		if e.days[i].b == b && e.days[i].di == di {
			e.days[i].daily += q
			e.days[i].count += n
			return
		}
	}
	e.days = append(e.days, dayTerm{b: b, di: di, daily: v.daily(b, di) + q, count: v.count(b, di) + n})
}

func (e *effect) addLoad(v view, l, di int, q float64) {
	for i := range e.loads {
		if e.loads[i].l == l && e.loads[i].di == di {
			e.loads[i].load += q
			return
		}
	}
	e.loads = append(e.loads, loadTerm{l: l, di: di, load: v.load(l, di) + q})
}

func (e *effect) dailyAt(v view, b, di int) float64 {
	for _, d := range e.days {
		if d.b == b && d.di == di {
			return d.daily
		}
	}
	return v.daily(b, di)
}

func (e *effect) countAt(v view, b, di int) int32 {
	for _, d := range e.days {
		if d.b == b && d.di == di {
			return d.count
		}
	}
	return v.count(b, di)
}

func (e *effect) completionAt(v view, b int) int {
	for _, bt := range e.blocks {
		if bt.b == b {
			return bt.completion
		}
	}
	return v.completion(b)
}

func hasMachine(ms []mobTerm, m int) bool {
	for _, t := range ms {
		if t.m == m {
			return true
		}
	}
	return false
}

func hasPair(ps []pairTermValue, k int) bool {
	for _, p := range ps {
		if p.k == k {
			return true
		}
	}
	return false
}

// machineMob walks a machine row in time order and prices every change of block.
func (ix *index) machineMob(m int, at func(slot int) int32) (float64, int) {
	prev := -1
	cost, events := 0.0, 0
	for di := 0; di < ix.nd; di++ {
		for s := 0; s < ix.ns; s++ {
			b := int(at(ix.slotIndex(m, di, s)))
			if b < 0 {
				continue
			}
			if prev >= 0 && b != prev {
				cost += ix.mobCost(m, prev, b)
				events++
			}
			prev = b
		}
	}
	return cost, events
}

// completionOf returns the first day index on which cumulative production
// reaches the block volume, or nd when it never does.
func (ix *index) completionOf(b int, daily func(di int) float64) int {
	need := ix.volume[b] * (1 - completionTolerance)
	cum := 0.0
	for di := 0; di < ix.nd; di++ {
		cum += daily(di)
		if cum >= need {
			return di
		}
	}
	return ix.nd
}

// pairTerm counts successor slots worked on or before the predecessor's
// completion day. All successor slots count when the predecessor never completes.
func (ix *index) pairTerm(k int, completion func(b int) int, count func(b, di int) int32) float64 {
	pr := ix.pairs[k]
	last := completion(pr.pred)
	if last >= ix.nd {
		last = ix.nd - 1
	}
	n := int32(0)
	for di := 0; di <= last; di++ {
		n += count(pr.succ, di)
	}
	return float64(n)
}

func (ix *index) overflowOf(l int, load float64) float64 {
	if ix.soft[l] <= 0 || load <= ix.soft[l] {
		return 0
	}
	return load - ix.soft[l]
}

// Breakdown reports the weighted objective terms.
type Breakdown struct {
	Production   float64 `json:"production"`
	Mobilisation float64 `json:"mobilisation"`
	Blackout     float64 `json:"blackout"`
	Sequencing   float64 `json:"sequencing"`
	Landing      float64 `json:"landing"`
	Total        float64 `json:"total"`
	Events       int     `json:"mobilisation_events"`
}

// Evaluate recomputes the objective of s from its slot table alone, ignoring
// every cached aggregate.
func Evaluate(s *State) Breakdown {
	ix := s.ix
	w := s.w
	daily := make([]float64, ix.nb*ix.nd)
	counts := make([]int32, ix.nb*ix.nd)
	produced := make([]float64, ix.nb)
	loads := make([]float64, ix.nl*ix.nd)
	var br Breakdown
	blackouts := 0
	for slot, b32 := range s.slots {
		if b32 < 0 {
			continue
		}
		b := int(b32)
		m, di, _ := ix.slotOf(slot)
		q := ix.quantity(m, di, b)
		daily[b*ix.nd+di] += q
		counts[b*ix.nd+di]++
		produced[b] += q
		if l := ix.landing[b]; l >= 0 {
			loads[l*ix.nd+di] += q
		}
		if ix.black[b*ix.nd+di] {
			blackouts++
		}
	}
	for m := 0; m < ix.nm; m++ {
		cost, ev := ix.machineMob(m, func(slot int) int32 { return s.slots[slot] })
		br.Mobilisation += cost
		br.Events += ev
	}
	for b := 0; b < ix.nb; b++ {
		br.Production += ix.value[b] * math.Min(produced[b], ix.volume[b])
	}
	completion := func(b int) int {
		return ix.completionOf(b, func(di int) float64 { return daily[b*ix.nd+di] })
	}
	for k := range ix.pairs {
		br.Sequencing += ix.pairTerm(k, completion, func(b, di int) int32 { return counts[b*ix.nd+di] })
	}
	for i, load := range loads {
		br.Landing += ix.overflowOf(i/maxInt(ix.nd, 1), load)
	}
	br.Blackout = float64(blackouts)

	br.Production *= w.Production
	br.Mobilisation *= w.Mobilisation
	br.Blackout *= w.Blackout
	br.Sequencing *= w.Sequencing
	br.Landing *= w.Landing
	br.Total = br.Production - br.Mobilisation - br.Blackout - br.Sequencing - br.Landing
	return br
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
