// Package tumor implements the per-tick tumor growth and treatment engine on a bounded 2D lattice.
//
// A Simulation is single-threaded: the driver calls Step from one goroutine and must let each
// tick finish before issuing the next. All randomness comes from one seeded stream, so equal
// Params (including Seed) reproduce identical trajectories.
package tumor

import (
	"fmt"
	"math/rand/v2"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
)

// State is the mutable per-run counters.
type State struct {
	Step           int `json:"step"`
	RemainingDoses int `json:"remaining_doses"`
	// TumorCells is cached before each sweep and used by every growth guard of that tick.
	TumorCells int `json:"tumor_cells"`
}

type Simulation struct {
	params   Params
	rates    rates
	dissolve float64

	grid     lattice.Grid
	cells    []slot
	boundary []int

	src *rand.PCG
	rng *rand.Rand

	state   State
	running bool
	err     error

	sweepStats SweepStats

	// Scratch buffers reused across ticks.
	order []handle
	nbuf  []lattice.Pos
	cands []int
}

func New(p Params) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := lattice.New(p.Width, p.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	src := newSource(p.Seed)
	s := &Simulation{
		params:   p,
		rates:    p.scaled(),
		dissolve: p.DissolveRate(),
		grid:     g,
		cells:    make([]slot, g.Cells()),
		boundary: g.BoundaryIndices(),
		src:      src,
		rng:      rand.New(src),
		state:    State{RemainingDoses: p.TreatmentCycles},
		running:  true,
		order:    make([]handle, 0, g.Cells()),
		nbuf:     make([]lattice.Pos, 0, 8),
		cands:    make([]int, 0, 8),
	}
	s.placeInitialTumor()
	return s, nil
}

func newSource(seed int64) *rand.PCG {
	u := uint64(seed)
	return rand.NewPCG(u, u^0x9e3779b97f4a7c15)
}

// placeInitialTumor fills the lattice: a centred square footprint with a Proliferative border and
// Quiescent interior, every other cell Baseline. All concentrations start at 0.
func (s *Simulation) placeInitialTumor() {
	w, h, size := s.grid.Width(), s.grid.Height(), s.params.InitialTumorSize
	x1 := w/2 - size/2
	x2 := x1 + size - 1
	y1 := h/2 - size/2
	y2 := y1 + size - 1
	for i := range s.cells {
		p := s.grid.PosOf(i)
		ph := Baseline
		if p.X >= x1 && p.X <= x2 && p.Y >= y1 && p.Y <= y2 {
			ph = Quiescent
			if p.X == x1 || p.X == x2 || p.Y == y1 || p.Y == y2 {
				ph = Proliferative
			}
		}
		s.cells[i] = slot{id: i, phenotype: ph}
	}
}

// Step runs one tick: treatment check, metrics collection, then the diffusion and transition sweep.
// It returns the metrics collected before the sweep. A degenerate probability aborts the tick and
// faults the simulation; every later call returns the same error.
func (s *Simulation) Step() (TickMetrics, error) {
	if s.err != nil {
		return TickMetrics{}, s.err
	}
	dose := s.applyTreatment()
	m := s.collect(dose)
	if err := s.sweep(); err != nil {
		s.err = fmt.Errorf("tick %d: %w", s.state.Step, err)
		s.running = false
		return m, s.err
	}
	s.state.Step++
	return m, nil
}

// Running is the driver's continue flag. The engine clears it only on a fault.
func (s *Simulation) Running() bool { return s.running }

// Stop clears the running flag; a tick already in progress is unaffected.
func (s *Simulation) Stop() { s.running = false }

// Err returns the fault that stopped the simulation, if any.
func (s *Simulation) Err() error { return s.err }

func (s *Simulation) Params() Params     { return s.params }
func (s *Simulation) State() State       { return s.state }
func (s *Simulation) Grid() lattice.Grid { return s.grid }

// LastSweep returns a copy of the most recent sweep's statistics.
func (s *Simulation) LastSweep() SweepStats {
	out := s.sweepStats
	out.Transitions = append([]Transition(nil), s.sweepStats.Transitions...)
	return out
}

// Occupant returns the occupant at p.
func (s *Simulation) Occupant(p lattice.Pos) (Occupant, error) {
	i, err := s.grid.Index(p)
	if err != nil {
		return Occupant{}, err
	}
	return s.view(i), nil
}

// Occupants appends every occupant in row-major order to dst.
func (s *Simulation) Occupants(dst []Occupant) []Occupant {
	for i := range s.cells {
		dst = append(dst, s.view(i))
	}
	return dst
}

// Phenotypes appends every cell's phenotype in row-major order to dst.
func (s *Simulation) Phenotypes(dst []Phenotype) []Phenotype {
	for i := range s.cells {
		dst = append(dst, s.cells[i].phenotype)
	}
	return dst
}

// Concentrations appends every cell's concentration in row-major order to dst.
func (s *Simulation) Concentrations(dst []float64) []float64 {
	for i := range s.cells {
		dst = append(dst, s.cells[i].c)
	}
	return dst
}

// TotalConcentration sums C over the lattice.
func (s *Simulation) TotalConcentration() float64 {
	var sum float64
	for i := range s.cells {
		sum += s.cells[i].c
	}
	return sum
}

// Replace swaps the occupant at p for one of phenotype ph with concentration c, keeping its
// identity. Drivers use it between ticks to set up experiments.
func (s *Simulation) Replace(p lattice.Pos, ph Phenotype, c float64) error {
	i, err := s.grid.Index(p)
	if err != nil {
		return err
	}
	if !ph.Valid() {
		return fmt.Errorf("%w: phenotype %d", ErrInvalidParameter, uint8(ph))
	}
	if c < 0 {
		return fmt.Errorf("%w: concentration %g < 0", ErrInvalidParameter, c)
	}
	sl := &s.cells[i]
	if sl.phenotype != ph {
		sl.phenotype = ph
		sl.gen++
	}
	sl.c = c
	return nil
}
