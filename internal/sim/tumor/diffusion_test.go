package tumor

import (
	"math"
	"testing"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
)

func TestFoldedWeights_PartitionOfUnity(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {1, 5}, {5, 1}, {2, 2}, {3, 3}, {10, 7}}
	for _, sz := range sizes {
		g, err := lattice.New(sz.w, sz.h)
		if err != nil {
			t.Fatalf("lattice.New: %v", err)
		}
		for i := 0; i < g.Cells(); i++ {
			p := g.PosOf(i)
			ws, err := FoldedWeights(g, p)
			if err != nil {
				t.Fatalf("FoldedWeights(%s): %v", p, err)
			}
			sum := 0.0
			for q, w := range ws {
				if !g.InBounds(q) {
					t.Fatalf("%dx%d %s: weight on out-of-bounds %s", sz.w, sz.h, p, q)
				}
				if w <= 0 {
					t.Fatalf("%dx%d %s: non-positive weight %v at %s", sz.w, sz.h, p, w, q)
				}
				sum += w
			}
			if !near(sum, 1) {
				t.Fatalf("%dx%d %s: weights sum to %v", sz.w, sz.h, p, sum)
			}
		}
	}
}

func TestFoldedWeights_CornerFoldsInward(t *testing.T) {
	g, _ := lattice.New(3, 3)
	ws, err := FoldedWeights(g, lattice.Pos{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("FoldedWeights: %v", err)
	}
	want := map[lattice.Pos]float64{
		{X: 0, Y: 0}: 0.93,
		{X: 0, Y: 1}: 0.03,
		{X: 1, Y: 0}: 0.03,
		{X: 1, Y: 1}: 0.01,
	}
	if len(ws) != len(want) {
		t.Fatalf("weights: got %v want %v", ws, want)
	}
	for q, w := range want {
		if !near(ws[q], w) {
			t.Fatalf("weight at %s: got %v want %v", q, ws[q], w)
		}
	}

	interior, _ := FoldedWeights(g, lattice.Pos{X: 1, Y: 1})
	if len(interior) != 9 || !near(interior[lattice.Pos{X: 1, Y: 1}], 0.88) {
		t.Fatalf("interior weights: %v", interior)
	}
	if _, err := FoldedWeights(g, lattice.Pos{X: 3, Y: 0}); err == nil {
		t.Fatalf("expected error for out-of-bounds position")
	}
}

// Visiting the centre before a corner lets the corner re-disperse what it just received;
// the reverse order does not. The two results must match the in-place arithmetic exactly.
func TestDiffuse_SequentialOrderDependent(t *testing.T) {
	p := quietParams(3, 3, 1)
	p.KDE = 0.5

	centreFirst := newSim(t, p)
	centreFirst.cells[4].c = 1
	centreFirst.diffuse(4)
	if !near(centreFirst.cells[4].c, 0.94) || !near(centreFirst.cells[1].c, 0.01) || !near(centreFirst.cells[0].c, 0.005) {
		t.Fatalf("after centre: centre=%v edge=%v corner=%v", centreFirst.cells[4].c, centreFirst.cells[1].c, centreFirst.cells[0].c)
	}
	centreFirst.diffuse(0)
	// corner keeps half of 0.005 plus 0.93 of the dispersed half.
	if want := 0.0025 + 0.0025*0.93; !near(centreFirst.cells[0].c, want) {
		t.Fatalf("corner after centre-then-corner: got %v want %v", centreFirst.cells[0].c, want)
	}

	cornerFirst := newSim(t, p)
	cornerFirst.cells[4].c = 1
	cornerFirst.diffuse(0)
	cornerFirst.diffuse(4)
	if !near(cornerFirst.cells[0].c, 0.005) {
		t.Fatalf("corner after corner-then-centre: got %v want 0.005", cornerFirst.cells[0].c)
	}
	if near(centreFirst.cells[0].c, cornerFirst.cells[0].c) {
		t.Fatalf("visiting order had no effect")
	}
}

func TestDiffuse_ConservesMassAndKeepsNonNegative(t *testing.T) {
	p := quietParams(7, 5, 1)
	p.KDE = 0.3
	s := newSim(t, p)
	replace(t, s, 0, 0, Baseline, 2)
	replace(t, s, 6, 4, Baseline, 1)
	replace(t, s, 3, 2, Dead, 0.5)
	before := s.TotalConcentration()
	for i := 0; i < 25; i++ {
		step(t, s)
		if got := s.TotalConcentration(); math.Abs(got-before) > 1e-9 {
			t.Fatalf("tick %d: total C %v, want %v", i, got, before)
		}
	}
	for _, c := range s.Concentrations(nil) {
		if c < 0 {
			t.Fatalf("negative concentration %v", c)
		}
	}
	if occupantAt(t, s, 3, 2).Phenotype != Dead {
		t.Fatalf("dead cell changed phenotype")
	}
}

func TestDiffuse_ZeroDissolveIsNoop(t *testing.T) {
	s := newSim(t, quietParams(3, 3, 1))
	s.cells[4].c = 0.75
	s.diffuse(4)
	if s.cells[4].c != 0.75 || s.cells[0].c != 0 {
		t.Fatalf("kde=1 moved concentration: %v", s.Concentrations(nil))
	}
}
