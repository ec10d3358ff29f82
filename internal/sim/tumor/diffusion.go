package tumor

import "github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"

type kernelTap struct {
	dx, dy int
	w      float64
}

// 3x3 kernel, taps in column-major order. Weights sum to 1: corners 0.01, edges 0.02,
// centre 0.88.
var diffusionKernel = [...]kernelTap{
	{-1, -1, 0.01}, {-1, 0, 0.02}, {-1, 1, 0.01},
	{0, -1, 0.02}, {0, 0, 0.88}, {0, 1, 0.02},
	{1, -1, 0.01}, {1, 0, 0.02}, {1, 1, 0.01},
}

// diffuse disperses the dissolve fraction of cell i's current concentration over the kernel.
// Taps that fall off the lattice are folded onto the nearest in-bounds row/column, so the
// dispersed mass always lands on existing cells. Neighbours are updated in place: an occupant
// visited later this tick reads the value left here.
func (s *Simulation) diffuse(i int) {
	if s.dissolve == 0 {
		return
	}
	c := s.cells[i].c
	out := c * s.dissolve
	s.cells[i].c = c - out
	if out == 0 {
		return
	}
	p := s.grid.PosOf(i)
	for _, t := range diffusionKernel {
		q := s.grid.Clamp(lattice.Pos{X: p.X + t.dx, Y: p.Y + t.dy})
		s.cells[s.grid.MustIndex(q)].c += out * t.w
	}
}

// FoldedWeights returns the effective share of p's dispersed concentration received by each cell.
func FoldedWeights(g lattice.Grid, p lattice.Pos) (map[lattice.Pos]float64, error) {
	if _, err := g.Index(p); err != nil {
		return nil, err
	}
	out := make(map[lattice.Pos]float64, len(diffusionKernel))
	for _, t := range diffusionKernel {
		q := g.Clamp(lattice.Pos{X: p.X + t.dx, Y: p.Y + t.dy})
		out[q] += t.w
	}
	return out, nil
}
