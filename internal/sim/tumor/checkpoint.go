package tumor

import (
	"fmt"
	"math/rand/v2"
)

// Checkpoint is a complete copy of a simulation between ticks, including the random stream
// position. Restoring it continues the exact trajectory of the original run.
type Checkpoint struct {
	Params         Params      `json:"params"`
	State          State       `json:"state"`
	Phenotypes     []Phenotype `json:"phenotypes"`
	Concentrations []float64   `json:"concentrations"`
	Generations    []uint32    `json:"generations"`
	RNG            []byte      `json:"rng"`
}

// Checkpoint copies the current state. A faulted simulation cannot be checkpointed.
func (s *Simulation) Checkpoint() (Checkpoint, error) {
	if s.err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %v", ErrFaulted, s.err)
	}
	rng, err := s.src.MarshalBinary()
	if err != nil {
		return Checkpoint{}, err
	}
	cp := Checkpoint{
		Params:         s.params,
		State:          s.state,
		Phenotypes:     make([]Phenotype, len(s.cells)),
		Concentrations: make([]float64, len(s.cells)),
		Generations:    make([]uint32, len(s.cells)),
		RNG:            rng,
	}
	for i := range s.cells {
		cp.Phenotypes[i] = s.cells[i].phenotype
		cp.Concentrations[i] = s.cells[i].c
		cp.Generations[i] = s.cells[i].gen
	}
	return cp, nil
}

// Restore builds a running simulation from cp.
func Restore(cp Checkpoint) (*Simulation, error) {
	s, err := New(cp.Params)
	if err != nil {
		return nil, err
	}
	n := len(s.cells)
	if len(cp.Phenotypes) != n || len(cp.Concentrations) != n || len(cp.Generations) != n {
		return nil, fmt.Errorf("%w: checkpoint holds %d/%d/%d cells, lattice has %d",
			ErrInvalidParameter, len(cp.Phenotypes), len(cp.Concentrations), len(cp.Generations), n)
	}
	if cp.State.Step < 0 || cp.State.RemainingDoses < 0 || cp.State.RemainingDoses > cp.Params.TreatmentCycles {
		return nil, fmt.Errorf("%w: checkpoint state %+v", ErrInvalidParameter, cp.State)
	}
	for i := range s.cells {
		ph, c := cp.Phenotypes[i], cp.Concentrations[i]
		if !ph.Valid() {
			return nil, fmt.Errorf("%w: phenotype %d at %v", ErrInvalidParameter, uint8(ph), s.grid.PosOf(i))
		}
		if c < 0 {
			return nil, fmt.Errorf("%w: concentration %g at %v", ErrInvalidParameter, c, s.grid.PosOf(i))
		}
		s.cells[i] = slot{id: i, phenotype: ph, c: c, gen: cp.Generations[i]}
	}
	src := &rand.PCG{}
	if err := src.UnmarshalBinary(cp.RNG); err != nil {
		return nil, fmt.Errorf("%w: rng state: %v", ErrInvalidParameter, err)
	}
	s.src = src
	s.rng = rand.New(src)
	s.state = cp.State
	return s, nil
}

// Tick returns the number of completed ticks the checkpoint was taken after.
func (cp Checkpoint) Tick() int { return cp.State.Step }
