package safe

import (
	"math"
)

// Finite reports whether v is a usable number (not NaN, not ±Inf).
// Every value crossing a process boundary (quote feeds, config, snapshots)
// must pass this before it reaches the ledger.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FinitePositive reports whether v is finite and strictly positive.
// Prices and quantities must satisfy this everywhere past the boundary.
func FinitePositive(v float64) bool {
	return Finite(v) && v > 0
}

// FiniteNonNeg reports whether v is finite and >= 0.
// Balances must satisfy this at all times.
func FiniteNonNeg(v float64) bool {
	return Finite(v) && v >= 0
}

// ApproxEqual compares two floats within an absolute tolerance.
// Used by accounting identities that accumulate rounding error.
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Pct returns the relative distance of v from base, as a fraction.
// Panics on base == 0: callers guarantee an anchored base price.
func Pct(v, base float64) float64 {
	if base == 0 {
		panic("CORE_PCT_ZERO_BASE")
	}
	return math.Abs(v-base) / base
}
