package tumor

import "math"

// MaxTumorSizeMM is the physical edge length the lattice width maps to.
const MaxTumorSizeMM = 100

// MTD is the measured tumor diameter for tumorCells tumor cells on a lattice of the given width.
func MTD(tumorCells, width int) float64 {
	return math.Sqrt(float64(tumorCells)) * MaxTumorSizeMM / float64(width)
}

type PhenotypeCounts struct {
	Baseline         int `json:"baseline"`
	Proliferative    int `json:"proliferative"`
	Quiescent        int `json:"quiescent"`
	DamagedQuiescent int `json:"damaged_quiescent"`
	Dead             int `json:"dead"`
}

func (c *PhenotypeCounts) add(p Phenotype) {
	switch p {
	case Baseline:
		c.Baseline++
	case Proliferative:
		c.Proliferative++
	case Quiescent:
		c.Quiescent++
	case DamagedQuiescent:
		c.DamagedQuiescent++
	case Dead:
		c.Dead++
	}
}

func (c PhenotypeCounts) Tumor() int { return c.Proliferative + c.Quiescent + c.DamagedQuiescent }

func (c PhenotypeCounts) Total() int { return c.Baseline + c.Tumor() + c.Dead }

// TickMetrics is what one tick reports to its driver, collected after treatment and before the sweep.
type TickMetrics struct {
	Tick           int             `json:"tick"`
	MTD            float64         `json:"mtd"`
	TumorCells     int             `json:"tumor_cells"`
	Counts         PhenotypeCounts `json:"counts"`
	DoseApplied    bool            `json:"dose_applied"`
	RemainingDoses int             `json:"remaining_doses"`
	// Concentrations is per occupant, row-major.
	Concentrations []float64 `json:"concentrations,omitempty"`
}

func (s *Simulation) collect(dose bool) TickMetrics {
	var counts PhenotypeCounts
	conc := make([]float64, len(s.cells))
	for i := range s.cells {
		counts.add(s.cells[i].phenotype)
		conc[i] = s.cells[i].c
	}
	s.state.TumorCells = counts.Tumor()
	return TickMetrics{
		Tick:           s.state.Step,
		MTD:            MTD(s.state.TumorCells, s.grid.Width()),
		TumorCells:     s.state.TumorCells,
		Counts:         counts,
		DoseApplied:    dose,
		RemainingDoses: s.state.RemainingDoses,
		Concentrations: conc,
	}
}
