package model

import "sort"

// Block is a harvestable forest unit with a volume and a feasible day window.
type Block struct {
	ID                string   `json:"id" yaml:"id"`
	Volume            float64  `json:"volume" yaml:"volume"`
	Area              float64  `json:"area" yaml:"area"`
	ProductivityClass string   `json:"productivity_class" yaml:"productivity_class"`
	Earliest          int      `json:"earliest" yaml:"earliest"`
	Latest            int      `json:"latest" yaml:"latest"`
	RequiredSystem    string   `json:"required_system" yaml:"required_system"`
	Predecessors      []string `json:"predecessors" yaml:"predecessors"`
	Landing           string   `json:"landing" yaml:"landing"`
	// Value is the production value per unit of harvested volume.
	Value float64 `json:"value" yaml:"value"`
}

// Machine is a harvesting asset with a per-day availability calendar.
type Machine struct {
	ID         string          `json:"id" yaml:"id"`
	Systems    []string        `json:"systems" yaml:"systems"`
	DailyHours float64         `json:"daily_hours" yaml:"daily_hours"`
	Calendar   map[int]float64 `json:"calendar" yaml:"calendar"`
	Blackout   []int           `json:"blackout" yaml:"blackout"`
	// Rate is the volume produced per hour when no class specific rate applies.
	Rate  float64            `json:"rate" yaml:"rate"`
	Rates map[string]float64 `json:"rates" yaml:"rates"`
}

// Landing is a roadside deck receiving the volume of its blocks.
type Landing struct {
	ID string `json:"id" yaml:"id"`
	// Capacity is the daily volume above which overflow is penalised.
	Capacity float64 `json:"capacity" yaml:"capacity"`
	// HardCapacity is never exceeded. Zero disables the limit.
	HardCapacity float64 `json:"hard_capacity" yaml:"hard_capacity"`
}

// Blackout marks days on which working a block is penalised.
type Blackout struct {
	Block string `json:"block" yaml:"block"`
	Days  []int  `json:"days" yaml:"days"`
}

// Transition overrides the mobilisation cost of a machine moving between two blocks.
type Transition struct {
	Machine string  `json:"machine" yaml:"machine"`
	From    string  `json:"from" yaml:"from"`
	To      string  `json:"to" yaml:"to"`
	Cost    float64 `json:"cost" yaml:"cost"`
}

// Mobilisation holds the cost table for machine moves between blocks.
type Mobilisation struct {
	Default     map[string]float64 `json:"default" yaml:"default"`
	Transitions []Transition       `json:"transitions" yaml:"transitions"`
}

// Window restricts where non fixed assignments may be placed.
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Problem is the immutable planning instance handed to the solvers.
type Problem struct {
	Name         string       `json:"name" yaml:"name"`
	FirstDay     int          `json:"first_day" yaml:"first_day"`
	LastDay      int          `json:"last_day" yaml:"last_day"`
	ShiftsPerDay int          `json:"shifts_per_day" yaml:"shifts_per_day"`
	Blocks       []Block      `json:"blocks" yaml:"blocks"`
	Machines     []Machine    `json:"machines" yaml:"machines"`
	Landings     []Landing    `json:"landings" yaml:"landings"`
	Blackouts    []Blackout   `json:"blackouts" yaml:"blackouts"`
	Mobilisation Mobilisation `json:"mobilisation" yaml:"mobilisation"`
	Window       *Window      `json:"window,omitempty" yaml:"window,omitempty"`
}

// Assignment places one shift of machine work on a block.
type Assignment struct {
	Block    string  `json:"block"`
	Machine  string  `json:"machine"`
	Day      int     `json:"day"`
	Shift    int     `json:"shift"`
	Hours    float64 `json:"hours"`
	Quantity float64 `json:"quantity"`
}

// SetDefaults fills zero values with their documented defaults.
func (p *Problem) SetDefaults() {
	if p.FirstDay == 0 {
		p.FirstDay = 1
	}
	if p.ShiftsPerDay <= 0 {
		p.ShiftsPerDay = 1
	}
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if b.Earliest == 0 {
			b.Earliest = p.FirstDay
		}
		if b.Latest == 0 {
			b.Latest = p.LastDay
		}
		if b.Value == 0 {
			b.Value = 1
		}
	}
}

// Days returns the number of days in the horizon.
func (p *Problem) Days() int { return p.LastDay - p.FirstDay + 1 }

// HoursOn returns the machine hours available on day d.
func (m Machine) HoursOn(d int) float64 {
	for _, b := range m.Blackout {
		if b == d {
			return 0
		}
	}
	if h, ok := m.Calendar[d]; ok {
		return h
	}
	return m.DailyHours
}

// RateFor returns the hourly production of the machine on the given class.
func (m Machine) RateFor(class string) float64 {
	if r, ok := m.Rates[class]; ok {
		return r
	}
	return m.Rate
}

// Supports reports whether the machine can work a block requiring system.
func (m Machine) Supports(system string) bool {
	if system == "" {
		return true
	}
	for _, s := range m.Systems {
		if s == system {
			return true
		}
	}
	return false
}

// Restrict returns a copy of the problem whose placements are limited to
// days [start, end].
func (p *Problem) Restrict(start, end int) *Problem {
	cp := *p
	cp.Window = &Window{Start: start, End: end}
	return &cp
}

// InWindow reports whether new work may be placed on day d.
func (p *Problem) InWindow(d int) bool {
	if d < p.FirstDay || d > p.LastDay {
		return false
	}
	if p.Window == nil {
		return true
	}
	return d >= p.Window.Start && d <= p.Window.End
}

// Infeasible lists blocks that cannot be worked on any day: no day in their
// window offers hours on a compatible machine. The result is sorted by ID.
func (p *Problem) Infeasible() []string {
	var ids []string
	for _, b := range p.Blocks {
		if !p.blockReachable(b, b.Earliest, b.Latest) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Reachable reports whether block b can be worked on at least one day in
// [from, to] intersected with its own window.
func (p *Problem) Reachable(b Block, from, to int) bool {
	return p.blockReachable(b, from, to)
}

func (p *Problem) blockReachable(b Block, from, to int) bool {
	if from < b.Earliest {
		from = b.Earliest
	}
	if to > b.Latest {
		to = b.Latest
	}
	for d := from; d <= to; d++ {
		for _, m := range p.Machines {
			if m.Supports(b.RequiredSystem) && m.HoursOn(d) > 0 && m.RateFor(b.ProductivityClass) > 0 {
				return true
			}
		}
	}
	return false
}

// MobilisationCost returns the cost of machine moving from one block to another.
func (p *Problem) MobilisationCost(machine, from, to string) float64 {
	if from == to || from == "" {
		return 0
	}
	for _, t := range p.Mobilisation.Transitions {
		if t.Machine == machine && t.From == from && t.To == to {
			return t.Cost
		}
	}
	return p.Mobilisation.Default[machine]
}
