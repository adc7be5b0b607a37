// Package outcome decides whether a spin wins and produces the final grid.
package outcome

import (
	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/grid"
	"github.com/cory-johannsen/slot/internal/game/symbol"
)

// DefaultWinChance is the fixed probability that a spin wins.
var DefaultWinChance = dice.Percent(5)

// Method records how a grid was generated.
type Method int

const (
	// MethodIndependent fills every cell with its own weighted draw.
	MethodIndependent Method = iota
	// MethodUniform fills every cell with a single weighted draw.
	MethodUniform
)

// String returns "independent" or "uniform".
func (m Method) String() string {
	if m == MethodUniform {
		return "uniform"
	}
	return "independent"
}

// Outcome is the resolved result of one spin.
type Outcome struct {
	// Win is decided before the grid is generated.
	Win bool
	// Method is MethodUniform exactly when Win is true.
	Method Method
	// Symbol is the winning symbol index, or -1 on a loss.
	Symbol int
	// Cells is the reels × rows final grid.
	Cells [][]int
}

// Engine resolves spins against a symbol registry and an injectable Source.
type Engine struct {
	reg    *symbol.Registry
	src    dice.Source
	chance dice.Chance
}

// NewEngine creates an Engine.
//
// Precondition: reg and src must be non-nil; chance.Valid().
func NewEngine(reg *symbol.Registry, src dice.Source, chance dice.Chance) *Engine {
	return &Engine{reg: reg, src: src, chance: chance}
}

// Chance returns the configured win probability.
func (e *Engine) Chance() dice.Chance { return e.chance }

// Registry returns the symbols outcomes are drawn from.
func (e *Engine) Registry() *symbol.Registry { return e.reg }

// Resolve performs the win/lose Bernoulli draw and then renders the grid.
// A loss grid that happens to be uniform is still a loss.
//
// Precondition: reels > 0 and rows > 0.
// Postcondition: Win implies every cell equals Symbol and exactly 2 draws were
// consumed; a loss consumes 1 + reels*rows draws.
func (e *Engine) Resolve(reels, rows int) Outcome {
	if e.chance.Roll(e.src) {
		sym := e.reg.Draw(e.src)
		return Outcome{
			Win:    true,
			Method: MethodUniform,
			Symbol: sym,
			Cells:  grid.Fill(reels, rows, sym),
		}
	}
	cells := make([][]int, reels)
	for i := range cells {
		cells[i] = e.reg.DrawN(e.src, rows)
	}
	return Outcome{
		Win:    false,
		Method: MethodIndependent,
		Symbol: -1,
		Cells:  cells,
	}
}
