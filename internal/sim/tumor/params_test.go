package tumor

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultParams_Valid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if got := DefaultParams().DissolveRate(); !near(got, 0.02) {
		t.Fatalf("dissolve rate: got %v want 0.02", got)
	}
}

func TestParams_ValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		field string
		mut   func(p *Params)
	}{
		{"zero width", "width", func(p *Params) { p.Width = 0 }},
		{"negative height", "height", func(p *Params) { p.Height = -3 }},
		{"zero tumor", "initial_tumor_size", func(p *Params) { p.InitialTumorSize = 0 }},
		{"tumor wider than lattice", "initial_tumor_size", func(p *Params) { p.Height = 5 }},
		{"negative offset", "first_cycle_offset", func(p *Params) { p.FirstCycleOffset = -1 }},
		{"negative cycles", "treatment_cycles", func(p *Params) { p.TreatmentCycles = -1 }},
		{"zero interval", "treatment_cycle_interval", func(p *Params) { p.TreatmentCycleInterval = 0 }},
		{"zero scale", "param_scale", func(p *Params) { p.ParamScale = 0 }},
		{"nan scale", "param_scale", func(p *Params) { p.ParamScale = math.NaN() }},
		{"kde above one", "kde", func(p *Params) { p.KDE = 1.01 }},
		{"kde negative", "kde", func(p *Params) { p.KDE = -0.1 }},
		{"growth above one", "proliferative_growth_rate", func(p *Params) { p.ProliferativeGrowthRate = 1.5 }},
		{"quiescent negative", "proliferative_to_quiescent_rate", func(p *Params) { p.ProliferativeToQuiescentRate = -0.1 }},
		{"elimination nan", "proliferative_elimination_rate", func(p *Params) { p.ProliferativeEliminationRate = math.NaN() }},
		{"damage above one", "quiescent_to_damaged_rate", func(p *Params) { p.QuiescentToDamagedRate = 2 }},
		{"recovery above one", "damaged_to_proliferative_rate", func(p *Params) { p.DamagedToProliferativeRate = 1.1 }},
		{"damaged elimination negative", "damaged_elimination_rate", func(p *Params) { p.DamagedEliminationRate = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mut(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var pe *ParamError
			if !errors.As(err, &pe) || pe.Field != tt.field {
				t.Fatalf("expected ParamError on %s, got %v", tt.field, err)
			}
			if _, err := New(p); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("New accepted invalid params: %v", err)
			}
		})
	}
}

func TestParams_BoundaryValuesAccepted(t *testing.T) {
	p := DefaultParams()
	p.KDE = 0
	p.ProliferativeToQuiescentRate = 1
	p.DamagedToProliferativeRate = 1
	p.ParamScale = 3
	p.InitialTumorSize = 20
	p.FirstCycleOffset = 0
	if err := p.Validate(); err != nil {
		t.Fatalf("boundary values rejected: %v", err)
	}
}

func TestParams_ScaleMultipliesRates(t *testing.T) {
	p := DefaultParams()
	p.ParamScale = 2
	r := p.scaled()
	if !near(r.growth, 0.242) || !near(r.toQuiescent, 0.06) || !near(r.damagedElim, 0.016) {
		t.Fatalf("scaled rates: %+v", r)
	}
}
