// Package lattice holds the fixed-size, non-wrapping 2D grid geometry shared by the engine and its drivers.
package lattice

import (
	"errors"
	"fmt"
)

var ErrInvalidPosition = errors.New("invalid position")

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Grid maps positions to dense row-major indices (index = y*width + x).
type Grid struct {
	w, h int
}

func New(width, height int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, fmt.Errorf("lattice size must be positive: %dx%d", width, height)
	}
	return Grid{w: width, h: height}, nil
}

func (g Grid) Width() int  { return g.w }
func (g Grid) Height() int { return g.h }
func (g Grid) Cells() int  { return g.w * g.h }

func (g Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.w && p.Y >= 0 && p.Y < g.h
}

func (g Grid) Index(p Pos) (int, error) {
	if !g.InBounds(p) {
		return 0, fmt.Errorf("%w: %s outside %dx%d", ErrInvalidPosition, p, g.w, g.h)
	}
	return p.Y*g.w + p.X, nil
}

// MustIndex is Index for engine-internal callers; an out-of-bounds position is a programming error.
func (g Grid) MustIndex(p Pos) int {
	i, err := g.Index(p)
	if err != nil {
		panic(err)
	}
	return i
}

func (g Grid) PosOf(i int) Pos {
	return Pos{X: i % g.w, Y: i / g.w}
}

// Clamp folds a possibly out-of-bounds position onto the nearest in-bounds row/column.
func (g Grid) Clamp(p Pos) Pos {
	return Pos{X: clampInt(p.X, 0, g.w-1), Y: clampInt(p.Y, 0, g.h-1)}
}

// OnBoundary reports whether p is on the outer row/column.
func (g Grid) OnBoundary(p Pos) bool {
	return p.X == 0 || p.Y == 0 || p.X == g.w-1 || p.Y == g.h-1
}

// Neighbors appends the in-bounds neighbours of p to dst in a fixed order: column-major over dx then dy,
// both from -1 to 1. No wraparound.
func (g Grid) Neighbors(dst []Pos, p Pos, diagonals, includeSelf bool) ([]Pos, error) {
	if !g.InBounds(p) {
		return dst, fmt.Errorf("%w: %s outside %dx%d", ErrInvalidPosition, p, g.w, g.h)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				if includeSelf {
					dst = append(dst, p)
				}
				continue
			}
			if !diagonals && dx != 0 && dy != 0 {
				continue
			}
			q := Pos{X: p.X + dx, Y: p.Y + dy}
			if g.InBounds(q) {
				dst = append(dst, q)
			}
		}
	}
	return dst, nil
}

// BoundaryIndices returns the indices of every cell on the outer row/column, each once, row-major.
func (g Grid) BoundaryIndices() []int {
	out := make([]int, 0, 2*(g.w+g.h))
	for i := 0; i < g.Cells(); i++ {
		if g.OnBoundary(g.PosOf(i)) {
			out = append(out, i)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
