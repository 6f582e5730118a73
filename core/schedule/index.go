package schedule

import (
	"sort"

	"github.com/kilianp07/forestplan/core/model"
)

// completionTolerance absorbs float drift when comparing production to volume.
const completionTolerance = 1e-9

type pair struct {
	pred, succ int
}

// index is the immutable, array based form of a Problem shared by a State,
// its snapshots and the generator.
type index struct {
	p     *model.Problem
	nb    int // blocks
	nm    int // machines
	nl    int // landings
	nd    int // days
	ns    int // shifts per day
	first int

	blockIdx   map[string]int
	machineIdx map[string]int

	hours   []float64 // per shift hours, [m*nd+di]
	rate    []float64 // [m*nb+b], zero when the machine cannot work the block
	landing []int     // [b], -1 without landing
	black   []bool    // [b*nd+di]
	volume  []float64
	value   []float64
	soft    []float64 // landing soft capacity
	hard    []float64 // landing hard capacity, 0 means unlimited

	mobDefault []float64
	mobPairs   map[[3]int]float64

	pairs  []pair
	asSucc [][]int // pair indices where the block is the successor
	asPred [][]int // pair indices where the block is the predecessor
}

//gocyclo:ignore
func newIndex(p *model.Problem) *index {
	ix := &index{
		p:          p,
		nb:         len(p.Blocks),
		nm:         len(p.Machines),
		nl:         len(p.Landings),
		nd:         p.Days(),
		ns:         p.ShiftsPerDay,
		first:      p.FirstDay,
		blockIdx:   make(map[string]int, len(p.Blocks)),
		machineIdx: make(map[string]int, len(p.Machines)),
		mobPairs:   make(map[[3]int]float64),
	}
	if ix.ns <= 0 {
		ix.ns = 1
	}
	if ix.nd < 0 {
		ix.nd = 0
	}
	for i, b := range p.Blocks {
		ix.blockIdx[b.ID] = i
	}
	for i, m := range p.Machines {
		ix.machineIdx[m.ID] = i
	}
	landingIdx := make(map[string]int, len(p.Landings))
	ix.soft = make([]float64, ix.nl)
	ix.hard = make([]float64, ix.nl)
	for i, l := range p.Landings {
		landingIdx[l.ID] = i
		ix.soft[i] = l.Capacity
		ix.hard[i] = l.HardCapacity
	}

	ix.hours = make([]float64, ix.nm*ix.nd)
	ix.rate = make([]float64, ix.nm*ix.nb)
	ix.mobDefault = make([]float64, ix.nm)
	for m, mc := range p.Machines {
		for di := 0; di < ix.nd; di++ {
			ix.hours[m*ix.nd+di] = mc.HoursOn(ix.first+di) / float64(ix.ns)
		}
		for b, bc := range p.Blocks {
			if mc.Supports(bc.RequiredSystem) {
				ix.rate[m*ix.nb+b] = mc.RateFor(bc.ProductivityClass)
			}
		}
		ix.mobDefault[m] = p.Mobilisation.Default[mc.ID]
	}
	for _, t := range p.Mobilisation.Transitions {
		m, ok1 := ix.machineIdx[t.Machine]
		from, ok2 := ix.blockIdx[t.From]
		to, ok3 := ix.blockIdx[t.To]
		if ok1 && ok2 && ok3 {
			ix.mobPairs[[3]int{m, from, to}] = t.Cost
		}
	}

	ix.landing = make([]int, ix.nb)
	ix.black = make([]bool, ix.nb*ix.nd)
	ix.volume = make([]float64, ix.nb)
	ix.value = make([]float64, ix.nb)
	ix.asSucc = make([][]int, ix.nb)
	ix.asPred = make([][]int, ix.nb)
	for b, bc := range p.Blocks {
		ix.landing[b] = -1
		if l, ok := landingIdx[bc.Landing]; ok {
			ix.landing[b] = l
		}
		ix.volume[b] = bc.Volume
		ix.value[b] = bc.Value
		preds := append([]string(nil), bc.Predecessors...)
		sort.Strings(preds)
		for _, id := range preds {
			pb, ok := ix.blockIdx[id]
			if !ok {
				continue
			}
			k := len(ix.pairs)
			ix.pairs = append(ix.pairs, pair{pred: pb, succ: b})
			ix.asSucc[b] = append(ix.asSucc[b], k)
			ix.asPred[pb] = append(ix.asPred[pb], k)
		}
	}
	for _, bo := range p.Blackouts {
		b, ok := ix.blockIdx[bo.Block]
		if !ok {
			continue
		}
		for _, d := range bo.Days {
			if di := d - ix.first; di >= 0 && di < ix.nd {
				ix.black[b*ix.nd+di] = true
			}
		}
	}
	return ix
}

func (ix *index) slotCount() int { return ix.nm * ix.nd * ix.ns }

func (ix *index) slotIndex(m, di, s int) int { return (m*ix.nd+di)*ix.ns + s }

// slotOf decodes a flat slot index.
func (ix *index) slotOf(i int) (m, di, s int) {
	s = i % ix.ns
	md := i / ix.ns
	return md / ix.nd, md % ix.nd, s
}

func (ix *index) quantity(m, di, b int) float64 {
	return ix.hours[m*ix.nd+di] * ix.rate[m*ix.nb+b]
}

func (ix *index) mobCost(m, from, to int) float64 {
	if from < 0 || from == to {
		return 0
	}
	if c, ok := ix.mobPairs[[3]int{m, from, to}]; ok {
		return c
	}
	return ix.mobDefault[m]
}

// windowAllows reports whether block b may be newly placed on day index di.
func (ix *index) windowAllows(b, di int) bool {
	d := ix.first + di
	bc := ix.p.Blocks[b]
	if d < bc.Earliest || d > bc.Latest {
		return false
	}
	return ix.p.InWindow(d)
}
