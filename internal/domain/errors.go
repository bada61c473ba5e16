package domain

import "errors"

// Sentinel errors for the simulation core. Everything here is recoverable
// within a single tick; none of these terminate the process.
var (
	// ErrPriceUnavailable: the oracle chain produced no usable quote.
	// The engine skips the tick and retries on the next one.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInvalidFill: a computed fill had a non-finite or non-positive
	// price/quantity. The offending pass halts for the tick.
	ErrInvalidFill = errors.New("invalid fill")

	// ErrNoOpenPosition: a sell level triggered with nothing to close.
	ErrNoOpenPosition = errors.New("no open position")
)
