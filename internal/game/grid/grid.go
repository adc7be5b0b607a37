// Package grid holds the reel × row matrix of symbol indices shown by the
// machine.
package grid

import (
	"fmt"
	"sync"
)

// Grid is a fixed-size, column-major matrix of symbol indices.
// All methods are safe for concurrent use; the animator mutates single
// columns while renderers take snapshots.
//
// Invariant: Reels() and Rows() never change after New.
type Grid struct {
	mu    sync.RWMutex
	reels int
	rows  int
	cells [][]int // cells[reel][row]
}

// New creates a Grid with every cell set to symbol index 0.
//
// Precondition: reels > 0 and rows > 0.
// Postcondition: Returns a zero-filled Grid or an error.
func New(reels, rows int) (*Grid, error) {
	if reels <= 0 || rows <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", reels, rows)
	}
	cells := make([][]int, reels)
	for i := range cells {
		cells[i] = make([]int, rows)
	}
	return &Grid{reels: reels, rows: rows, cells: cells}, nil
}

// Reels returns the number of columns.
func (g *Grid) Reels() int { return g.reels }

// Rows returns the number of cells per column.
func (g *Grid) Rows() int { return g.rows }

// Cell returns the symbol index at (reel, row).
//
// Precondition: 0 <= reel < Reels(); 0 <= row < Rows().
func (g *Grid) Cell(reel, row int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[reel][row]
}

// Column returns a copy of one column.
//
// Precondition: 0 <= reel < Reels().
func (g *Grid) Column(reel int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]int(nil), g.cells[reel]...)
}

// SetColumn overwrites one column in place.
//
// Precondition: len(values) == Rows().
// Postcondition: Column(reel) equals values, or an error is returned and the grid is unchanged.
func (g *Grid) SetColumn(reel int, values []int) error {
	if reel < 0 || reel >= g.reels {
		return fmt.Errorf("reel %d out of range [0,%d)", reel, g.reels)
	}
	if len(values) != g.rows {
		return fmt.Errorf("column length %d does not match rows %d", len(values), g.rows)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	copy(g.cells[reel], values)
	return nil
}

// Replace swaps in an entire matrix of the same dimensions.
//
// Precondition: cells is reels × rows.
// Postcondition: Snapshot() equals cells, or an error is returned and the grid is unchanged.
func (g *Grid) Replace(cells [][]int) error {
	if len(cells) != g.reels {
		return fmt.Errorf("replacement has %d reels, want %d", len(cells), g.reels)
	}
	for i, col := range cells {
		if len(col) != g.rows {
			return fmt.Errorf("replacement reel %d has %d rows, want %d", i, len(col), g.rows)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, col := range cells {
		copy(g.cells[i], col)
	}
	return nil
}

// Snapshot returns a deep copy of the matrix.
func (g *Grid) Snapshot() [][]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Clone(g.cells)
}

// Clone deep-copies a matrix.
func Clone(cells [][]int) [][]int {
	out := make([][]int, len(cells))
	for i, col := range cells {
		out[i] = append([]int(nil), col...)
	}
	return out
}

// Fill builds a reels × rows matrix where every cell holds sym.
func Fill(reels, rows, sym int) [][]int {
	out := make([][]int, reels)
	for i := range out {
		col := make([]int, rows)
		for j := range col {
			col[j] = sym
		}
		out[i] = col
	}
	return out
}

// Uniform reports whether every cell of cells holds the same symbol, and which.
// An empty matrix is not uniform.
func Uniform(cells [][]int) (int, bool) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return 0, false
	}
	sym := cells[0][0]
	for _, col := range cells {
		for _, v := range col {
			if v != sym {
				return 0, false
			}
		}
	}
	return sym, true
}
