package outcome_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/grid"
	"github.com/cory-johannsen/slot/internal/game/outcome"
	"github.com/cory-johannsen/slot/internal/game/symbol"
)

const (
	reels = 6
	rows  = 5
)

func TestResolve_ForcedWin(t *testing.T) {
	// 0 < 500 wins; 95 draws purple.
	src := dice.NewScriptedSource(nil, 0, 95)
	e := outcome.NewEngine(symbol.Default(), src, outcome.DefaultWinChance)

	out := e.Resolve(reels, rows)
	assert.True(t, out.Win)
	assert.Equal(t, outcome.MethodUniform, out.Method)
	assert.Equal(t, 2, out.Symbol)
	assert.Equal(t, grid.Fill(reels, rows, 2), out.Cells)
	assert.Equal(t, 2, src.Draws(), "a win consumes the chance draw and one symbol draw")
}

func TestResolve_ForcedLoss(t *testing.T) {
	src := dice.NewScriptedSource(dice.NewSeededSource(3), 500)
	e := outcome.NewEngine(symbol.Default(), src, outcome.DefaultWinChance)

	out := e.Resolve(reels, rows)
	assert.False(t, out.Win)
	assert.Equal(t, outcome.MethodIndependent, out.Method)
	assert.Equal(t, -1, out.Symbol)
	require.Len(t, out.Cells, reels)
	for _, col := range out.Cells {
		assert.Len(t, col, rows)
	}
	assert.Equal(t, 1+reels*rows, src.Draws(), "a loss draws every cell independently")
}

// TestResolve_UniformLossIsStillLoss verifies decide-then-render: a losing
// draw whose cells coincide is not promoted to a win.
func TestResolve_UniformLossIsStillLoss(t *testing.T) {
	values := make([]int, 1+reels*rows)
	values[0] = 9999 // lose
	// every remaining cell draws 0 → red
	src := dice.NewScriptedSource(nil, values...)
	e := outcome.NewEngine(symbol.Default(), src, outcome.DefaultWinChance)

	out := e.Resolve(reels, rows)
	sym, uniform := grid.Uniform(out.Cells)
	assert.True(t, uniform)
	assert.Equal(t, 0, sym)
	assert.False(t, out.Win)
	assert.Equal(t, outcome.MethodIndependent, out.Method)
}

// Property: a win is always uniform; the generation method always tracks Win.
func TestProperty_ResolveStructure(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		chance := dice.Chance(rapid.IntRange(0, dice.BasisPoints).Draw(rt, "chance"))
		r := rapid.IntRange(1, 8).Draw(rt, "reels")
		w := rapid.IntRange(1, 8).Draw(rt, "rows")

		e := outcome.NewEngine(symbol.Default(), dice.NewSeededSource(seed), chance)
		out := e.Resolve(r, w)

		if len(out.Cells) != r {
			rt.Fatalf("got %d reels, want %d", len(out.Cells), r)
		}
		if out.Win {
			sym, ok := grid.Uniform(out.Cells)
			if !ok || sym != out.Symbol {
				rt.Fatalf("winning grid not uniform on %d: %v", out.Symbol, out.Cells)
			}
			if out.Method != outcome.MethodUniform {
				rt.Fatalf("win generated with %s", out.Method)
			}
		} else if out.Method != outcome.MethodIndependent || out.Symbol != -1 {
			rt.Fatalf("loss generated with %s symbol %d", out.Method, out.Symbol)
		}
	})
}

func TestResolve_WinRateConverges(t *testing.T) {
	e := outcome.NewEngine(symbol.Default(), dice.NewSeededSource(11), outcome.DefaultWinChance)
	const trials = 40000
	wins := 0
	for i := 0; i < trials; i++ {
		if e.Resolve(1, 1).Win {
			wins++
		}
	}
	rate := float64(wins) / trials
	assert.LessOrEqual(t, math.Abs(rate-0.05), 0.005, "win rate %.4f", rate)
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "uniform", outcome.MethodUniform.String())
	assert.Equal(t, "independent", outcome.MethodIndependent.String())
}
