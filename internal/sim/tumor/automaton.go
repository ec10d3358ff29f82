package tumor

import "math"

const degenerateEpsilon = 1e-12

// evaluate runs the phenotype state machine for the occupant at cell i. Guards are tried in
// priority order with one fresh draw each; the first satisfied guard fires and ends evaluation.
func (s *Simulation) evaluate(i int) error {
	switch s.cells[i].phenotype {
	case Proliferative:
		return s.evalProliferative(i)
	case Quiescent:
		if s.rng.Float64() < s.rates.toDamaged*s.cells[i].c {
			s.transfer(i, DamagedQuiescent, s.cells[i].id)
		}
	case DamagedQuiescent:
		return s.evalDamaged(i)
	}
	// Baseline and Dead never transition on their own.
	return nil
}

func (s *Simulation) evalProliferative(i int) error {
	self := &s.cells[i]
	if s.rng.Float64() < s.growthProb(s.state.TumorCells) {
		cands := s.growthCandidates(i)
		if len(cands) > 0 {
			target := cands[s.rng.IntN(len(cands))]
			s.transfer(target, Proliferative, self.id)
			return nil
		}
	}
	if s.rng.Float64() < s.rates.toQuiescent {
		s.transfer(i, Quiescent, self.id)
		return nil
	}
	p, err := s.conditional("proliferative_elimination", s.rates.prolifElim*self.c, s.rates.toQuiescent, self.id)
	if err != nil {
		return err
	}
	if s.rng.Float64() < p {
		s.transfer(i, Baseline, self.id)
	}
	return nil
}

func (s *Simulation) evalDamaged(i int) error {
	self := &s.cells[i]
	if s.rng.Float64() < s.rates.toProlif {
		s.transfer(i, Proliferative, self.id)
		return nil
	}
	p, err := s.conditional("damaged_elimination", s.rates.damagedElim, s.rates.toProlif, self.id)
	if err != nil {
		return err
	}
	if s.rng.Float64() < p {
		s.transfer(i, Baseline, self.id)
	}
	return nil
}

// growthProb is the territorial growth probability for a lattice holding tumorCells tumor cells.
// It shrinks with tumor burden and is 0 once every cell is tumor.
func (s *Simulation) growthProb(tumorCells int) float64 {
	return s.rates.growth * (1 - math.Sqrt(float64(tumorCells))/s.rates.latticeCellsSqrt)
}

// GrowthProbability exposes growthProb for drivers and analysis.
func (s *Simulation) GrowthProbability(tumorCells int) float64 { return s.growthProb(tumorCells) }

// growthCandidates lists the neighbours of i that territorial growth may take over.
// The returned slice is reused across calls.
func (s *Simulation) growthCandidates(i int) []int {
	s.nbuf, _ = s.grid.Neighbors(s.nbuf[:0], s.grid.PosOf(i), true, false)
	s.cands = s.cands[:0]
	for _, q := range s.nbuf {
		j := s.grid.MustIndex(q)
		if s.cells[j].phenotype.growthTarget() {
			s.cands = append(s.cands, j)
		}
	}
	return s.cands
}

// conditional computes p/(1-given), the probability of a later guard given that the earlier one
// with probability given did not fire.
func (s *Simulation) conditional(name string, p, given float64, id int) (float64, error) {
	denom := 1 - given
	v := p / denom
	if denom <= degenerateEpsilon || math.IsNaN(v) || v < 0 || v > 1 {
		return 0, &ProbabilityError{Transition: name, Value: v, Identity: id, Tick: s.state.Step}
	}
	return v, nil
}
