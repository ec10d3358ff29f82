package tumor

import "github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"

// slot is one arena entry; the lattice keeps exactly one per cell, indexed row-major.
// Replacing the occupant overwrites the phenotype tag and bumps gen; id and c carry over.
type slot struct {
	id        int
	phenotype Phenotype
	c         float64
	gen       uint32
}

// Occupant is a read-only view of the entity occupying one lattice cell.
type Occupant struct {
	ID         int         `json:"id"`
	Pos        lattice.Pos `json:"pos"`
	Phenotype  Phenotype   `json:"phenotype"`
	C          float64     `json:"c"`
	Generation uint32      `json:"generation"`
}

func (s *Simulation) view(i int) Occupant {
	sl := &s.cells[i]
	return Occupant{
		ID:         sl.id,
		Pos:        s.grid.PosOf(i),
		Phenotype:  sl.phenotype,
		C:          sl.c,
		Generation: sl.gen,
	}
}
