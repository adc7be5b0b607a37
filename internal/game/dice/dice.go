// Package dice provides the randomness abstraction shared by the symbol
// registry, the outcome engine and the reel animator.
package dice

import "fmt"

// Source is the randomness provider for every draw the machine makes.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// BasisPoints is the denominator of a Chance.
const BasisPoints = 10000

// Chance is a probability expressed in basis points (1/10000).
//
// Invariant: a valid Chance lies in [0, BasisPoints].
type Chance int

// Percent builds a Chance from a whole percentage.
//
// Precondition: p in [0, 100].
func Percent(p int) Chance {
	return Chance(p * BasisPoints / 100)
}

// Valid reports whether c lies in [0, BasisPoints].
func (c Chance) Valid() bool {
	return c >= 0 && c <= BasisPoints
}

// Roll performs one Bernoulli draw against src.
//
// Precondition: c.Valid(); src must be non-nil.
// Postcondition: Consumes exactly one Intn(BasisPoints) draw; returns true
// with probability c/BasisPoints.
func (c Chance) Roll(src Source) bool {
	return src.Intn(BasisPoints) < int(c)
}

// String returns the chance as a percentage, e.g. "5.00%".
func (c Chance) String() string {
	return fmt.Sprintf("%.2f%%", float64(c)*100/BasisPoints)
}
