// Package schedule holds the mutable schedule state, the moves that transform
// it, the incremental objective and the move generator.
package schedule

import (
	"fmt"
	"math"
	"slices"

	"github.com/kilianp07/forestplan/core/model"
)

const objectiveEpsilon = 1e-9

// Options configure a new State.
type Options struct {
	Weights        Weights
	HardSequencing bool
	// Fixed assignments occupy their slots and can never be moved.
	Fixed []model.Assignment
}

// Score orders complete schedules: higher objective first, then fewer
// mobilisation events.
type Score struct {
	Objective float64
	Events    int
}

// Better reports whether a strictly improves on b.
func (a Score) Better(b Score) bool {
	if math.Abs(a.Objective-b.Objective) > objectiveEpsilon {
		return a.Objective > b.Objective
	}
	return a.Events < b.Events
}

// Undo restores the state that existed before an Apply.
type Undo struct {
	move Move
	old  *effect
}

// Move returns the move that produced this undo record.
func (u Undo) Move() Move { return u.move }

// State is the slot table plus every aggregate the objective needs. It is not
// safe for concurrent use; batched evaluation works on a Snapshot instead.
type State struct {
	ix      *index
	w       Weights
	hardSeq bool

	slots []int32
	fixed []bool

	prod  []float64 // [b]
	val   []float64 // [b]
	compl []int     // [b]
	dayP  []float64 // [b*nd+di]
	cnt   []int32   // [b*nd+di]
	ld    []float64 // [l*nd+di]
	ovf   []float64 // [l*nd+di]
	mobC  []float64 // [m]
	mobE  []int     // [m]
	pairT []float64 // [k]

	obj       float64
	events    int
	blackouts int
}

// New builds the state for p with the fixed assignments of opts in place.
// Fixed assignments breaking a hard constraint yield a *ConstraintViolation.
func New(p *model.Problem, opts Options) (*State, error) {
	ix := newIndex(p)
	s := &State{
		ix:      ix,
		w:       opts.Weights,
		hardSeq: opts.HardSequencing,
		slots:   make([]int32, ix.slotCount()),
		fixed:   make([]bool, ix.slotCount()),
		prod:    make([]float64, ix.nb),
		val:     make([]float64, ix.nb),
		compl:   make([]int, ix.nb),
		dayP:    make([]float64, ix.nb*ix.nd),
		cnt:     make([]int32, ix.nb*ix.nd),
		ld:      make([]float64, ix.nl*ix.nd),
		ovf:     make([]float64, ix.nl*ix.nd),
		mobC:    make([]float64, ix.nm),
		mobE:    make([]int, ix.nm),
		pairT:   make([]float64, len(ix.pairs)),
	}
	for i := range s.slots {
		s.slots[i] = -1
	}
	for _, a := range opts.Fixed {
		if err := s.placeFixed(a); err != nil {
			return nil, err
		}
	}
	s.rebuild()
	if err := s.checkAggregates(); err != nil {
		return nil, err
	}
	return s, nil
}

//gocyclo:ignore
func (s *State) placeFixed(a model.Assignment) error {
	ix := s.ix
	b, ok := ix.blockIdx[a.Block]
	if !ok {
		return &ConstraintViolation{Constraint: ConstraintMalformed, Block: a.Block, Day: a.Day, Reason: "unknown block"}
	}
	m, ok := ix.machineIdx[a.Machine]
	if !ok {
		return &ConstraintViolation{Constraint: ConstraintMalformed, Machine: a.Machine, Day: a.Day, Reason: "unknown machine"}
	}
	di := a.Day - ix.first
	if di < 0 || di >= ix.nd || a.Shift < 0 || a.Shift >= ix.ns {
		return &ConstraintViolation{Constraint: ConstraintMalformed, Block: a.Block, Machine: a.Machine, Day: a.Day, Reason: "outside horizon"}
	}
	slot := ix.slotIndex(m, di, a.Shift)
	if s.slots[slot] >= 0 {
		return &ConstraintViolation{Constraint: ConstraintOccupied, Block: a.Block, Machine: a.Machine, Day: a.Day}
	}
	if ix.hours[m*ix.nd+di] <= 0 {
		return &ConstraintViolation{Constraint: ConstraintMachineHours, Block: a.Block, Machine: a.Machine, Day: a.Day}
	}
	if ix.rate[m*ix.nb+b] <= 0 {
		return &ConstraintViolation{Constraint: ConstraintCompatibility, Block: a.Block, Machine: a.Machine, Day: a.Day}
	}
	if bc := ix.p.Blocks[b]; a.Day < bc.Earliest || a.Day > bc.Latest {
		return &ConstraintViolation{Constraint: ConstraintWindow, Block: a.Block, Machine: a.Machine, Day: a.Day}
	}
	s.slots[slot] = int32(b)
	s.fixed[slot] = true
	return nil
}

// rebuild recomputes every aggregate from the slot table.
func (s *State) rebuild() {
	ix := s.ix
	for slot, b32 := range s.slots {
		if b32 < 0 {
			continue
		}
		b := int(b32)
		m, di, _ := ix.slotOf(slot)
		q := ix.quantity(m, di, b)
		s.dayP[b*ix.nd+di] += q
		s.cnt[b*ix.nd+di]++
		s.prod[b] += q
		if l := ix.landing[b]; l >= 0 {
			s.ld[l*ix.nd+di] += q
		}
		if ix.black[b*ix.nd+di] {
			s.blackouts++
		}
	}
	obj := 0.0
	for b := 0; b < ix.nb; b++ {
		s.val[b] = ix.value[b] * math.Min(s.prod[b], ix.volume[b])
		s.compl[b] = ix.completionOf(b, func(di int) float64 { return s.dayP[b*ix.nd+di] })
		obj += s.w.Production * s.val[b]
	}
	for m := 0; m < ix.nm; m++ {
		s.mobC[m], s.mobE[m] = ix.machineMob(m, s.block)
		s.events += s.mobE[m]
		obj -= s.w.Mobilisation * s.mobC[m]
	}
	for k := range ix.pairs {
		s.pairT[k] = ix.pairTerm(k, s.completion, s.count)
		obj -= s.w.Sequencing * s.pairT[k]
	}
	for i, load := range s.ld {
		s.ovf[i] = ix.overflowOf(i/ix.nd, load)
		obj -= s.w.Landing * s.ovf[i]
	}
	obj -= s.w.Blackout * float64(s.blackouts)
	s.obj = obj
}

func (s *State) checkAggregates() error {
	ix := s.ix
	for i, load := range s.ld {
		l := i / ix.nd
		if ix.hard[l] > 0 && load > ix.hard[l]+objectiveEpsilon {
			return &ConstraintViolation{Constraint: ConstraintLanding, Day: ix.first + i%ix.nd,
				Reason: fmt.Sprintf("landing %s load %.3f exceeds %.3f", ix.p.Landings[l].ID, load, ix.hard[l])}
		}
	}
	if s.hardSeq {
		for k, t := range s.pairT {
			if t > 0 {
				pr := ix.pairs[k]
				return &ConstraintViolation{Constraint: ConstraintSequencing, Block: ix.p.Blocks[pr.succ].ID,
					Reason: "worked before predecessor " + ix.p.Blocks[pr.pred].ID + " completed"}
			}
		}
	}
	return nil
}

// Verify rechecks every hard constraint against the slot table.
func (s *State) Verify() error {
	ix := s.ix
	for slot, b32 := range s.slots {
		if b32 < 0 {
			continue
		}
		b := int(b32)
		m, di, _ := ix.slotOf(slot)
		if err := s.checkPlacement(b, m, di, s.fixed[slot]); err != nil {
			return err
		}
	}
	return s.checkAggregates()
}

// Feasible reports whether the current schedule satisfies every hard constraint.
func (s *State) Feasible() bool { return s.Verify() == nil }

// Check validates mv against the hard constraints without mutating the state.
func (s *State) Check(mv Move) error {
	if err := s.checkShape(mv); err != nil {
		return err
	}
	chs := s.ix.changes(s, mv)
	if err := s.checkLanding(chs); err != nil {
		return err
	}
	if s.hardSeq {
		e := s.ix.evaluate(s, s.w, mv)
		for _, pt := range e.pairs {
			if pt.term > 0 {
				pr := s.ix.pairs[pt.k]
				return &ConstraintViolation{Constraint: ConstraintSequencing, Block: s.ix.p.Blocks[pr.succ].ID,
					Reason: "worked before predecessor " + s.ix.p.Blocks[pr.pred].ID + " completed"}
			}
		}
	}
	return nil
}

//gocyclo:ignore
func (s *State) checkShape(mv Move) error {
	ix := s.ix
	switch mv.Kind {
	case Reassign, Shift:
		if mv.Block < 0 || mv.Block >= ix.nb {
			return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "block out of range"}
		}
		if mv.From.IsUnassigned() && mv.To.IsUnassigned() {
			return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "move between pools"}
		}
		if mv.Kind == Shift {
			if mv.From.IsUnassigned() || mv.To.IsUnassigned() ||
				mv.From.Machine != mv.To.Machine || mv.From.Shift != mv.To.Shift ||
				(mv.To.Day-mv.From.Day != 1 && mv.From.Day-mv.To.Day != 1) {
				return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "shift must target the adjacent day"}
			}
		}
		if !mv.From.IsUnassigned() {
			slot, ok := s.slotFor(mv.From)
			if !ok || s.slots[slot] != int32(mv.Block) {
				return &ConstraintViolation{Constraint: ConstraintMalformed, Block: s.BlockID(mv.Block), Day: mv.From.Day, Reason: "block not at source"}
			}
			if s.fixed[slot] {
				return &ConstraintViolation{Constraint: ConstraintFixed, Block: s.BlockID(mv.Block), Day: mv.From.Day}
			}
		} else if s.Complete(mv.Block) {
			return &ConstraintViolation{Constraint: ConstraintComplete, Block: s.BlockID(mv.Block)}
		}
		if mv.To.IsUnassigned() {
			return nil
		}
		slot, ok := s.slotFor(mv.To)
		if !ok {
			return &ConstraintViolation{Constraint: ConstraintMalformed, Day: mv.To.Day, Reason: "target outside horizon"}
		}
		if s.slots[slot] >= 0 {
			return &ConstraintViolation{Constraint: ConstraintOccupied, Block: s.BlockID(mv.Block), Machine: s.MachineID(mv.To.Machine), Day: mv.To.Day}
		}
		return s.checkPlacement(mv.Block, mv.To.Machine, mv.To.Day-ix.first, false)
	case Swap:
		a, okA := s.slotFor(mv.From)
		c, okC := s.slotFor(mv.To)
		if !okA || !okC {
			return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "swap outside horizon"}
		}
		ba, bc := s.slots[a], s.slots[c]
		if ba < 0 || bc < 0 || ba == bc {
			return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "swap needs two different blocks"}
		}
		if s.fixed[a] || s.fixed[c] {
			return &ConstraintViolation{Constraint: ConstraintFixed, Day: mv.From.Day}
		}
		if err := s.checkPlacement(int(ba), mv.To.Machine, mv.To.Day-ix.first, false); err != nil {
			return err
		}
		return s.checkPlacement(int(bc), mv.From.Machine, mv.From.Day-ix.first, false)
	default:
		return &ConstraintViolation{Constraint: ConstraintMalformed, Reason: "unknown move kind"}
	}
}

// checkPlacement validates block b on machine m and day index di. Fixed work
// is exempt from the active window.
func (s *State) checkPlacement(b, m, di int, fixed bool) error {
	ix := s.ix
	day := ix.first + di
	if ix.hours[m*ix.nd+di] <= 0 {
		return &ConstraintViolation{Constraint: ConstraintMachineHours, Block: s.BlockID(b), Machine: s.MachineID(m), Day: day}
	}
	if ix.rate[m*ix.nb+b] <= 0 {
		return &ConstraintViolation{Constraint: ConstraintCompatibility, Block: s.BlockID(b), Machine: s.MachineID(m), Day: day}
	}
	if fixed {
		if bc := ix.p.Blocks[b]; day < bc.Earliest || day > bc.Latest {
			return &ConstraintViolation{Constraint: ConstraintWindow, Block: s.BlockID(b), Machine: s.MachineID(m), Day: day}
		}
		return nil
	}
	if !ix.windowAllows(b, di) {
		return &ConstraintViolation{Constraint: ConstraintWindow, Block: s.BlockID(b), Machine: s.MachineID(m), Day: day}
	}
	return nil
}

func (s *State) checkLanding(chs []change) error {
	ix := s.ix
	type key struct{ l, di int }
	var keys []key
	delta := map[key]float64{}
	add := func(b32 int32, m, di int, sign float64) {
		if b32 < 0 {
			return
		}
		b := int(b32)
		l := ix.landing[b]
		if l < 0 || ix.hard[l] <= 0 {
			return
		}
		k := key{l, di}
		if _, ok := delta[k]; !ok {
			keys = append(keys, k)
		}
		delta[k] += sign * ix.quantity(m, di, b)
	}
	for _, c := range chs {
		add(c.from, c.m, c.di, -1)
		add(c.to, c.m, c.di, 1)
	}
	for _, k := range keys {
		d := delta[k]
		if d <= 0 {
			continue
		}
		if s.ld[k.l*ix.nd+k.di]+d > ix.hard[k.l]+objectiveEpsilon {
			return &ConstraintViolation{Constraint: ConstraintLanding, Day: ix.first + k.di,
				Reason: "landing " + ix.p.Landings[k.l].ID + " hard capacity"}
		}
	}
	return nil
}

// Apply checks and performs mv. The returned Undo restores the exact prior state.
func (s *State) Apply(mv Move) (Undo, error) {
	if err := s.Check(mv); err != nil {
		return Undo{}, err
	}
	e := s.ix.evaluate(s, s.w, mv)
	old := s.capture(e)
	s.write(e)
	return Undo{move: mv, old: old}, nil
}

// Revert restores the state captured by u. Undo records must be reverted in
// reverse order of application.
func (s *State) Revert(u Undo) {
	if u.old == nil {
		return
	}
	s.write(u.old)
}

// Delta returns the objective change mv would cause. mv must be feasible.
func (s *State) Delta(mv Move) float64 {
	return s.ix.evaluate(s, s.w, mv).gain
}

// Candidate evaluates mv as a batch entry at position i.
func (s *State) Candidate(i int, mv Move) Candidate {
	return newCandidate(s.ix, s, s.w, i, mv)
}

func (s *State) capture(e *effect) *effect {
	ix := s.ix
	old := &effect{
		changes:   make([]change, len(e.changes)),
		machines:  make([]mobTerm, len(e.machines)),
		blocks:    make([]blockTerm, len(e.blocks)),
		days:      make([]dayTerm, len(e.days)),
		loads:     make([]loadTerm, len(e.loads)),
		pairs:     make([]pairTermValue, len(e.pairs)),
		objective: s.obj,
		events:    s.events,
		blackouts: s.blackouts,
	}
	for i, c := range e.changes {
		old.changes[i] = change{slot: c.slot, m: c.m, di: c.di, from: c.to, to: s.slots[c.slot]}
	}
	for i, t := range e.machines {
		old.machines[i] = mobTerm{m: t.m, cost: s.mobC[t.m], events: s.mobE[t.m]}
	}
	for i, t := range e.blocks {
		old.blocks[i] = blockTerm{b: t.b, produced: s.prod[t.b], value: s.val[t.b], completion: s.compl[t.b]}
	}
	for i, t := range e.days {
		j := t.b*ix.nd + t.di
		old.days[i] = dayTerm{b: t.b, di: t.di, daily: s.dayP[j], count: s.cnt[j]}
	}
	for i, t := range e.loads {
		j := t.l*ix.nd + t.di
		old.loads[i] = loadTerm{l: t.l, di: t.di, load: s.ld[j], overflow: s.ovf[j]}
	}
	for i, t := range e.pairs {
		old.pairs[i] = pairTermValue{k: t.k, term: s.pairT[t.k]}
	}
	return old
}

func (s *State) write(e *effect) {
	ix := s.ix
	for _, c := range e.changes {
		s.slots[c.slot] = c.to
	}
	for _, t := range e.machines {
		s.mobC[t.m], s.mobE[t.m] = t.cost, t.events
	}
	for _, t := range e.blocks {
		s.prod[t.b], s.val[t.b], s.compl[t.b] = t.produced, t.value, t.completion
	}
	for _, t := range e.days {
		j := t.b*ix.nd + t.di
		s.dayP[j], s.cnt[j] = t.daily, t.count
	}
	for _, t := range e.loads {
		j := t.l*ix.nd + t.di
		s.ld[j], s.ovf[j] = t.load, t.overflow
	}
	for _, t := range e.pairs {
		s.pairT[t.k] = t.term
	}
	s.obj, s.events, s.blackouts = e.objective, e.events, e.blackouts
}

// Objective returns the cached objective in constant time.
func (s *State) Objective() float64 { return s.obj }

// Events returns the number of mobilisation events in the schedule.
func (s *State) Events() int { return s.events }

// Score pairs the objective with its tie-break key.
func (s *State) Score() Score { return Score{Objective: s.obj, Events: s.events} }

// Weights returns the objective weights in use.
func (s *State) Weights() Weights { return s.w }

// Problem returns the problem the state schedules.
func (s *State) Problem() *model.Problem { return s.ix.p }

// BlockID maps a block index to its identifier.
func (s *State) BlockID(b int) string {
	if b < 0 || b >= s.ix.nb {
		return ""
	}
	return s.ix.p.Blocks[b].ID
}

// MachineID maps a machine index to its identifier.
func (s *State) MachineID(m int) string {
	if m < 0 || m >= s.ix.nm {
		return ""
	}
	return s.ix.p.Machines[m].ID
}

func (s *State) slotFor(sl Slot) (int, bool) {
	ix := s.ix
	di := sl.Day - ix.first
	if sl.Machine < 0 || sl.Machine >= ix.nm || di < 0 || di >= ix.nd || sl.Shift < 0 || sl.Shift >= ix.ns {
		return 0, false
	}
	return ix.slotIndex(sl.Machine, di, sl.Shift), true
}

// At returns the block index in slot sl, or -1.
func (s *State) At(sl Slot) int {
	i, ok := s.slotFor(sl)
	if !ok {
		return -1
	}
	return int(s.slots[i])
}

// IsFixed reports whether sl holds a fixed assignment.
func (s *State) IsFixed(sl Slot) bool {
	i, ok := s.slotFor(sl)
	return ok && s.fixed[i]
}

// Complete reports whether block b has reached its volume.
func (s *State) Complete(b int) bool {
	return s.prod[b] >= s.ix.volume[b]*(1-completionTolerance)
}

// Assignments lists the schedule ordered by day, shift and machine.
func (s *State) Assignments() []model.Assignment { return s.list(false) }

// Fixed lists the fixed assignments in the same order as Assignments.
func (s *State) Fixed() []model.Assignment { return s.list(true) }

func (s *State) list(onlyFixed bool) []model.Assignment {
	ix := s.ix
	var out []model.Assignment
	for di := 0; di < ix.nd; di++ {
		for sh := 0; sh < ix.ns; sh++ {
			for m := 0; m < ix.nm; m++ {
				slot := ix.slotIndex(m, di, sh)
				b := s.slots[slot]
				if b < 0 || (onlyFixed && !s.fixed[slot]) {
					continue
				}
				out = append(out, model.Assignment{
					Block:    ix.p.Blocks[b].ID,
					Machine:  ix.p.Machines[m].ID,
					Day:      ix.first + di,
					Shift:    sh,
					Hours:    ix.hours[m*ix.nd+di],
					Quantity: ix.quantity(m, di, int(b)),
				})
			}
		}
	}
	return out
}

// Clone returns an independent copy sharing only the immutable problem index.
func (s *State) Clone() *State {
	cp := *s
	cp.slots = slices.Clone(s.slots)
	cp.fixed = slices.Clone(s.fixed)
	cp.prod = slices.Clone(s.prod)
	cp.val = slices.Clone(s.val)
	cp.compl = slices.Clone(s.compl)
	cp.dayP = slices.Clone(s.dayP)
	cp.cnt = slices.Clone(s.cnt)
	cp.ld = slices.Clone(s.ld)
	cp.ovf = slices.Clone(s.ovf)
	cp.mobC = slices.Clone(s.mobC)
	cp.mobE = slices.Clone(s.mobE)
	cp.pairT = slices.Clone(s.pairT)
	return &cp
}

// view implementation.

func (s *State) block(slot int) int32        { return s.slots[slot] }
func (s *State) produced(b int) float64      { return s.prod[b] }
func (s *State) valueTerm(b int) float64     { return s.val[b] }
func (s *State) completion(b int) int        { return s.compl[b] }
func (s *State) daily(b, di int) float64     { return s.dayP[b*s.ix.nd+di] }
func (s *State) count(b, di int) int32       { return s.cnt[b*s.ix.nd+di] }
func (s *State) load(l, di int) float64      { return s.ld[l*s.ix.nd+di] }
func (s *State) overflow(l, di int) float64  { return s.ovf[l*s.ix.nd+di] }
func (s *State) mob(m int) (float64, int)    { return s.mobC[m], s.mobE[m] }
func (s *State) pairTerm(k int) float64      { return s.pairT[k] }
func (s *State) totals() (float64, int, int) { return s.obj, s.events, s.blackouts }
