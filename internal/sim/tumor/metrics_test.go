package tumor

import (
	"math"
	"testing"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
)

func TestMTD(t *testing.T) {
	if got := MTD(4, 10); got != 20 {
		t.Fatalf("MTD(4,10): got %v want 20", got)
	}
	if got := MTD(0, 20); got != 0 {
		t.Fatalf("MTD(0,20): got %v", got)
	}
	if got, want := MTD(7, 20), math.Sqrt(7)*100/20; got != want {
		t.Fatalf("MTD(7,20): got %v want %v", got, want)
	}
}

func TestInitialPlacement_Size2(t *testing.T) {
	s := newSim(t, quietParams(10, 10, 2))
	prolif := map[lattice.Pos]bool{{X: 4, Y: 4}: true, {X: 5, Y: 4}: true, {X: 4, Y: 5}: true, {X: 5, Y: 5}: true}
	for _, o := range s.Occupants(nil) {
		want := Baseline
		if prolif[o.Pos] {
			want = Proliferative
		}
		if o.Phenotype != want {
			t.Fatalf("%s: got %s want %s", o.Pos, o.Phenotype, want)
		}
		if o.C != 0 {
			t.Fatalf("%s: initial C=%v", o.Pos, o.C)
		}
	}
	m := step(t, s)
	want := PhenotypeCounts{Baseline: 96, Proliferative: 4}
	if m.Counts != want {
		t.Fatalf("counts: got %+v want %+v", m.Counts, want)
	}
	if m.Tick != 0 || m.TumorCells != 4 || m.MTD != 20 {
		t.Fatalf("tick 0 metrics: %+v", m)
	}
}

func TestInitialPlacement_Size3(t *testing.T) {
	s := newSim(t, quietParams(10, 10, 3))
	var counts PhenotypeCounts
	for _, o := range s.Occupants(nil) {
		counts.add(o.Phenotype)
		if o.Pos.X >= 4 && o.Pos.X <= 6 && o.Pos.Y >= 4 && o.Pos.Y <= 6 {
			if o.Phenotype == Baseline {
				t.Fatalf("%s should be tumor", o.Pos)
			}
		} else if o.Phenotype != Baseline {
			t.Fatalf("%s should be baseline, got %s", o.Pos, o.Phenotype)
		}
	}
	if counts.Proliferative != 8 || counts.Quiescent != 1 {
		t.Fatalf("counts: %+v", counts)
	}
	if got := occupantAt(t, s, 5, 5).Phenotype; got != Quiescent {
		t.Fatalf("centre: got %s want QUIESCENT", got)
	}
}

func TestMetrics_TotalEqualsCells(t *testing.T) {
	p := DefaultParams()
	p.Seed = 11
	p.FirstCycleOffset = 10
	s := newSim(t, p)
	for tick := 0; tick < 80; tick++ {
		m := step(t, s)
		if m.Counts.Total() != p.Width*p.Height {
			t.Fatalf("tick %d: total %d", tick, m.Counts.Total())
		}
		if m.Tick != tick {
			t.Fatalf("tick field %d want %d", m.Tick, tick)
		}
		if len(m.Concentrations) != p.Width*p.Height {
			t.Fatalf("tick %d: %d concentrations", tick, len(m.Concentrations))
		}
	}
}
