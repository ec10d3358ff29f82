package tumor

import (
	"testing"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
)

// quietParams has every rate at zero, no diffusion and no treatment.
func quietParams(w, h, size int) Params {
	p := DefaultParams()
	p.Width = w
	p.Height = h
	p.InitialTumorSize = size
	p.TreatmentCycles = 0
	p.KDE = 1
	p.ProliferativeGrowthRate = 0
	p.ProliferativeToQuiescentRate = 0
	p.ProliferativeEliminationRate = 0
	p.QuiescentToDamagedRate = 0
	p.DamagedToProliferativeRate = 0
	p.DamagedEliminationRate = 0
	return p
}

func newSim(t *testing.T, p Params) *Simulation {
	t.Helper()
	s, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func step(t *testing.T, s *Simulation) TickMetrics {
	t.Helper()
	m, err := s.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return m
}

func occupantAt(t *testing.T, s *Simulation, x, y int) Occupant {
	t.Helper()
	o, err := s.Occupant(lattice.Pos{X: x, Y: y})
	if err != nil {
		t.Fatalf("Occupant(%d,%d): %v", x, y, err)
	}
	return o
}

func replace(t *testing.T, s *Simulation, x, y int, ph Phenotype, c float64) {
	t.Helper()
	if err := s.Replace(lattice.Pos{X: x, Y: y}, ph, c); err != nil {
		t.Fatalf("Replace(%d,%d): %v", x, y, err)
	}
}

func near(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1e-12
}
