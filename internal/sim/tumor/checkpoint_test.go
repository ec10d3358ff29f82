package tumor

import (
	"errors"
	"testing"
)

func TestCheckpoint_RestoreContinuesTrajectory(t *testing.T) {
	p := DefaultParams()
	p.Seed = 3
	orig := newSim(t, p)
	for i := 0; i < 40; i++ {
		step(t, orig)
	}
	cp, err := orig.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if cp.Tick() != 40 {
		t.Fatalf("tick=%d want 40", cp.Tick())
	}
	restored, err := Restore(cp)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Digest() != orig.Digest() {
		t.Fatalf("digest differs right after restore")
	}
	// Crosses the first dose at tick 80.
	for i := 0; i < 80; i++ {
		a := step(t, orig)
		b := step(t, restored)
		if a.MTD != b.MTD || a.DoseApplied != b.DoseApplied {
			t.Fatalf("tick %d metrics diverged: %+v vs %+v", a.Tick, a, b)
		}
		if orig.Digest() != restored.Digest() {
			t.Fatalf("tick %d digest diverged", a.Tick)
		}
	}
}

func TestCheckpoint_IsACopy(t *testing.T) {
	s := newSim(t, quietParams(3, 3, 1))
	cp, err := s.Checkpoint()
	if err != nil {
		t.Fatal(err)
	}
	cp.Phenotypes[0] = Dead
	if got := s.Phenotypes(nil)[0]; got != Baseline {
		t.Fatalf("checkpoint aliases the lattice: %v", got)
	}
}

func TestCheckpoint_Faulted(t *testing.T) {
	p := DefaultParams()
	p.Width, p.Height = 4, 4
	p.InitialTumorSize = 4
	p.FirstCycleOffset = 0
	p.TreatmentCycles = 1
	p.KDE = 1
	p.ParamScale = 2
	p.ProliferativeGrowthRate = 0
	p.ProliferativeToQuiescentRate = 0
	p.ProliferativeEliminationRate = 0.9
	p.QuiescentToDamagedRate = 0
	p.DamagedToProliferativeRate = 0
	p.DamagedEliminationRate = 0
	s := newSim(t, p)
	if _, err := s.Step(); err == nil {
		t.Fatalf("expected fault")
	}
	if _, err := s.Checkpoint(); !errors.Is(err, ErrFaulted) {
		t.Fatalf("err=%v want ErrFaulted", err)
	}
}

func TestRestore_Rejects(t *testing.T) {
	s := newSim(t, quietParams(3, 3, 1))
	good, err := s.Checkpoint()
	if err != nil {
		t.Fatal(err)
	}
	clone := func() Checkpoint {
		cp := good
		cp.Phenotypes = append([]Phenotype(nil), good.Phenotypes...)
		cp.Concentrations = append([]float64(nil), good.Concentrations...)
		cp.Generations = append([]uint32(nil), good.Generations...)
		cp.RNG = append([]byte(nil), good.RNG...)
		return cp
	}

	cases := map[string]func(*Checkpoint){
		"short lattice":  func(cp *Checkpoint) { cp.Phenotypes = cp.Phenotypes[:4] },
		"bad phenotype":  func(cp *Checkpoint) { cp.Phenotypes[2] = Phenotype(99) },
		"negative c":     func(cp *Checkpoint) { cp.Concentrations[1] = -1 },
		"negative step":  func(cp *Checkpoint) { cp.State.Step = -1 },
		"rng":            func(cp *Checkpoint) { cp.RNG = []byte("nope") },
		"invalid params": func(cp *Checkpoint) { cp.Params.Width = 0 },
	}
	for name, mutate := range cases {
		cp := clone()
		mutate(&cp)
		if _, err := Restore(cp); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("%s: err=%v want ErrInvalidParameter", name, err)
		}
	}
}
