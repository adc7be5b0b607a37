// Package symbol defines the fixed set of reel symbols and the weighted draw
// used to pick one of them.
package symbol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/slot/internal/game/dice"
)

// Symbol is one face that can appear in a reel cell.
type Symbol struct {
	// ID is the unique symbol identifier, e.g. "red".
	ID string `yaml:"id"`
	// Asset is the image file displayed for the symbol, relative to the assets dir.
	Asset string `yaml:"asset"`
	// Glyph is the text rendering used by terminal frontends.
	Glyph string `yaml:"glyph"`
	// Weight is the symbol's relative draw weight.
	Weight int `yaml:"weight"`
}

// Registry is an immutable, ordered list of symbols with positive weights.
type Registry struct {
	symbols []Symbol
	total   int
}

// New validates symbols and builds a Registry preserving their order.
//
// Precondition: symbols must be non-empty, every Weight > 0, IDs unique and non-empty.
// Postcondition: Returns a Registry whose TotalWeight is the sum of all weights,
// or an error describing every violation.
func New(symbols []Symbol) (*Registry, error) {
	if len(symbols) == 0 {
		return nil, errors.New("symbol registry must contain at least one symbol")
	}
	var errs []string
	seen := make(map[string]bool, len(symbols))
	total := 0
	for i, s := range symbols {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("symbol %d: id must not be empty", i))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("symbol %d: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if s.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("symbol %q: weight must be > 0, got %d", s.ID, s.Weight))
		}
		total += s.Weight
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid symbol registry: %s", strings.Join(errs, "; "))
	}
	return &Registry{symbols: append([]Symbol(nil), symbols...), total: total}, nil
}

// Default returns the built-in red/green/purple registry weighted 60/30/10.
func Default() *Registry {
	reg, err := New([]Symbol{
		{ID: "red", Asset: "icons/red.png", Glyph: "🔴", Weight: 60},
		{ID: "green", Asset: "icons/green.png", Glyph: "🟢", Weight: 30},
		{ID: "purple", Asset: "icons/purple.png", Glyph: "🟣", Weight: 10},
	})
	if err != nil {
		panic("symbol: default registry invalid: " + err.Error())
	}
	return reg
}

// Len returns the number of symbols.
func (r *Registry) Len() int { return len(r.symbols) }

// TotalWeight returns the sum of all symbol weights.
func (r *Registry) TotalWeight() int { return r.total }

// At returns the symbol at index i.
//
// Precondition: 0 <= i < Len().
func (r *Registry) At(i int) Symbol { return r.symbols[i] }

// Symbols returns a copy of the ordered symbol list.
func (r *Registry) Symbols() []Symbol {
	return append([]Symbol(nil), r.symbols...)
}

// Index returns the position of the symbol with the given ID.
func (r *Registry) Index(id string) (int, bool) {
	for i, s := range r.symbols {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Draw picks one symbol index with probability proportional to its weight.
//
// A value is drawn uniformly in [1, TotalWeight]; each weight is subtracted in
// list order until the remainder is non-positive. If none triggers, the last
// index is returned.
//
// Precondition: src must be non-nil.
// Postcondition: Consumes exactly one draw from src; returns an index in [0, Len()).
func (r *Registry) Draw(src dice.Source) int {
	rnd := src.Intn(r.total) + 1
	for i, s := range r.symbols {
		rnd -= s.Weight
		if rnd <= 0 {
			return i
		}
	}
	return len(r.symbols) - 1
}

// DrawN fills a new slice of length n with independent weighted draws.
//
// Precondition: n >= 0; src must be non-nil.
func (r *Registry) DrawN(src dice.Source, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.Draw(src)
	}
	return out
}
