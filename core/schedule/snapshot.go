package schedule

import "fmt"

type blockSnap struct {
	produced   float64
	value      float64
	completion int
	daily      []float64
	count      []int32
}

// Snapshot is a read-only copy of the aggregates a batch of moves touches.
// Any number of goroutines may evaluate moves against one Snapshot.
type Snapshot struct {
	ix *index
	w  Weights

	rows   map[int][]int32
	blocks map[int]*blockSnap
	loads  map[int][2]float64
	mobs   map[int]mobTerm
	pairs  map[int]float64

	obj       float64
	events    int
	blackouts int
}

// Snapshot copies the aggregates needed to evaluate moves. Evaluating any
// other move against the result panics.
func (s *State) Snapshot(moves []Move) *Snapshot {
	ix := s.ix
	sn := &Snapshot{
		ix:        ix,
		w:         s.w,
		rows:      make(map[int][]int32),
		blocks:    make(map[int]*blockSnap),
		loads:     make(map[int][2]float64),
		mobs:      make(map[int]mobTerm),
		pairs:     make(map[int]float64),
		obj:       s.obj,
		events:    s.events,
		blackouts: s.blackouts,
	}
	width := ix.nd * ix.ns
	for _, mv := range moves {
		for _, c := range ix.changes(s, mv) {
			if _, ok := sn.rows[c.m]; !ok {
				sn.rows[c.m] = append([]int32(nil), s.slots[c.m*width:(c.m+1)*width]...)
				sn.mobs[c.m] = mobTerm{m: c.m, cost: s.mobC[c.m], events: s.mobE[c.m]}
			}
			for _, b32 := range [2]int32{c.from, c.to} {
				if b32 < 0 {
					continue
				}
				b := int(b32)
				sn.captureBlock(s, b)
				if l := ix.landing[b]; l >= 0 {
					j := l*ix.nd + c.di
					sn.loads[j] = [2]float64{s.ld[j], s.ovf[j]}
				}
				for _, ks := range [2][]int{ix.asPred[b], ix.asSucc[b]} {
					for _, k := range ks {
						sn.pairs[k] = s.pairT[k]
						sn.captureBlock(s, ix.pairs[k].pred)
						sn.captureBlock(s, ix.pairs[k].succ)
					}
				}
			}
		}
	}
	return sn
}

func (sn *Snapshot) captureBlock(s *State, b int) {
	if _, ok := sn.blocks[b]; ok {
		return
	}
	nd := sn.ix.nd
	sn.blocks[b] = &blockSnap{
		produced:   s.prod[b],
		value:      s.val[b],
		completion: s.compl[b],
		daily:      append([]float64(nil), s.dayP[b*nd:(b+1)*nd]...),
		count:      append([]int32(nil), s.cnt[b*nd:(b+1)*nd]...),
	}
}

// Delta returns the objective change of mv relative to the captured state.
func (sn *Snapshot) Delta(mv Move) float64 {
	return sn.ix.evaluate(sn, sn.w, mv).gain
}

// Candidate evaluates mv as batch entry i.
func (sn *Snapshot) Candidate(i int, mv Move) Candidate {
	return newCandidate(sn.ix, sn, sn.w, i, mv)
}

func (sn *Snapshot) mustBlock(b int) *blockSnap {
	bs, ok := sn.blocks[b]
	if !ok {
		panic(fmt.Sprintf("schedule: block %d not captured in snapshot", b))
	}
	return bs
}

func (sn *Snapshot) block(slot int) int32 {
	width := sn.ix.nd * sn.ix.ns
	m := slot / width
	row, ok := sn.rows[m]
	if !ok {
		panic(fmt.Sprintf("schedule: machine %d not captured in snapshot", m))
	}
	return row[slot-m*width]
}

func (sn *Snapshot) produced(b int) float64 { return sn.mustBlock(b).produced }

func (sn *Snapshot) valueTerm(b int) float64 { return sn.mustBlock(b).value }

func (sn *Snapshot) completion(b int) int { return sn.mustBlock(b).completion }

func (sn *Snapshot) daily(b, di int) float64 { return sn.mustBlock(b).daily[di] }

func (sn *Snapshot) count(b, di int) int32 { return sn.mustBlock(b).count[di] }

func (sn *Snapshot) load(l, di int) float64 { return sn.loadAt(l, di)[0] }

func (sn *Snapshot) overflow(l, di int) float64 { return sn.loadAt(l, di)[1] }

func (sn *Snapshot) loadAt(l, di int) [2]float64 {
	v, ok := sn.loads[l*sn.ix.nd+di]
	if !ok {
		panic(fmt.Sprintf("schedule: landing %d day %d not captured in snapshot", l, di))
	}
	return v
}

func (sn *Snapshot) mob(m int) (float64, int) {
	t, ok := sn.mobs[m]
	if !ok {
		panic(fmt.Sprintf("schedule: machine %d not captured in snapshot", m))
	}
	return t.cost, t.events
}

func (sn *Snapshot) pairTerm(k int) float64 {
	t, ok := sn.pairs[k]
	if !ok {
		panic(fmt.Sprintf("schedule: pair %d not captured in snapshot", k))
	}
	return t
}

func (sn *Snapshot) totals() (float64, int, int) { return sn.obj, sn.events, sn.blackouts }
