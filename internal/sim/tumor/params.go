package tumor

import "math"

// Params is the immutable per-run configuration.
type Params struct {
	Width  int   `json:"width" yaml:"width"`
	Height int   `json:"height" yaml:"height"`
	Seed   int64 `json:"seed" yaml:"seed"`

	InitialTumorSize int `json:"initial_tumor_size" yaml:"initial_tumor_size"`

	FirstCycleOffset       int `json:"first_cycle_offset" yaml:"first_cycle_offset"`
	TreatmentCycles        int `json:"treatment_cycles" yaml:"treatment_cycles"`
	TreatmentCycleInterval int `json:"treatment_cycle_interval" yaml:"treatment_cycle_interval"`

	// ParamScale multiplies every transition rate below.
	ParamScale float64 `json:"param_scale" yaml:"param_scale"`
	// KDE is the retained fraction of concentration; 1-KDE is redistributed by diffusion each tick.
	KDE float64 `json:"kde" yaml:"kde"`

	ProliferativeGrowthRate      float64 `json:"proliferative_growth_rate" yaml:"proliferative_growth_rate"`
	ProliferativeToQuiescentRate float64 `json:"proliferative_to_quiescent_rate" yaml:"proliferative_to_quiescent_rate"`
	ProliferativeEliminationRate float64 `json:"proliferative_elimination_rate" yaml:"proliferative_elimination_rate"`
	QuiescentToDamagedRate       float64 `json:"quiescent_to_damaged_rate" yaml:"quiescent_to_damaged_rate"`
	DamagedToProliferativeRate   float64 `json:"damaged_to_proliferative_rate" yaml:"damaged_to_proliferative_rate"`
	DamagedEliminationRate       float64 `json:"damaged_elimination_rate" yaml:"damaged_elimination_rate"`
}

// DefaultParams mirrors the reference model's constructor defaults on a 20x20 lattice.
func DefaultParams() Params {
	return Params{
		Width:                        20,
		Height:                       20,
		Seed:                         1,
		InitialTumorSize:             2,
		FirstCycleOffset:             80,
		TreatmentCycles:              30,
		TreatmentCycleInterval:       4,
		ParamScale:                   1,
		KDE:                          0.98,
		ProliferativeGrowthRate:      0.121,
		ProliferativeToQuiescentRate: 0.03,
		ProliferativeEliminationRate: 0.7,
		QuiescentToDamagedRate:       0.7,
		DamagedToProliferativeRate:   0.003,
		DamagedEliminationRate:       0.008,
	}
}

func (p Params) Validate() error {
	if p.Width <= 0 {
		return &ParamError{Field: "width", Reason: "must be > 0"}
	}
	if p.Height <= 0 {
		return &ParamError{Field: "height", Reason: "must be > 0"}
	}
	if p.InitialTumorSize <= 0 || p.InitialTumorSize > min(p.Width, p.Height) {
		return &ParamError{Field: "initial_tumor_size", Reason: "must be in [1, min(width,height)]"}
	}
	if p.FirstCycleOffset < 0 {
		return &ParamError{Field: "first_cycle_offset", Reason: "must be >= 0"}
	}
	if p.TreatmentCycles < 0 {
		return &ParamError{Field: "treatment_cycles", Reason: "must be >= 0"}
	}
	if p.TreatmentCycleInterval < 1 {
		return &ParamError{Field: "treatment_cycle_interval", Reason: "must be >= 1"}
	}
	if !(p.ParamScale > 0) || math.IsInf(p.ParamScale, 0) {
		return &ParamError{Field: "param_scale", Reason: "must be > 0"}
	}
	if !unit(p.KDE) {
		return &ParamError{Field: "kde", Reason: "must be in [0,1]"}
	}
	rates := []struct {
		name string
		v    float64
	}{
		{"proliferative_growth_rate", p.ProliferativeGrowthRate},
		{"proliferative_to_quiescent_rate", p.ProliferativeToQuiescentRate},
		{"proliferative_elimination_rate", p.ProliferativeEliminationRate},
		{"quiescent_to_damaged_rate", p.QuiescentToDamagedRate},
		{"damaged_to_proliferative_rate", p.DamagedToProliferativeRate},
		{"damaged_elimination_rate", p.DamagedEliminationRate},
	}
	for _, r := range rates {
		if !unit(r.v) {
			return &ParamError{Field: r.name, Reason: "must be in [0,1]"}
		}
	}
	return nil
}

// DissolveRate is the fraction of each cell's concentration redistributed per tick.
func (p Params) DissolveRate() float64 { return 1 - p.KDE }

// rates holds the ParamScale-adjusted transition rates used by the automaton.
type rates struct {
	growth      float64
	toQuiescent float64
	prolifElim  float64
	toDamaged   float64
	toProlif    float64
	damagedElim float64

	latticeCellsSqrt float64
}

func (p Params) scaled() rates {
	s := p.ParamScale
	return rates{
		growth:           p.ProliferativeGrowthRate * s,
		toQuiescent:      p.ProliferativeToQuiescentRate * s,
		prolifElim:       p.ProliferativeEliminationRate * s,
		toDamaged:        p.QuiescentToDamagedRate * s,
		toProlif:         p.DamagedToProliferativeRate * s,
		damagedElim:      p.DamagedEliminationRate * s,
		latticeCellsSqrt: math.Sqrt(float64(p.Width * p.Height)),
	}
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
