package approval

import "errors"

var (
	// ErrConversionUnavailable is returned when a requested currency is
	// absent from the rate table
	ErrConversionUnavailable = errors.New("conversion rate unavailable")

	// ErrInvalidTransition is returned when a decision is applied to an
	// expense that is no longer pending
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidDecision is returned when a decision is neither approved
	// nor rejected
	ErrInvalidDecision = errors.New("invalid decision")
)
