package swap

import "errors"

// Order admission errors. All are rejected before any order state exists
// and are recoverable by the caller correcting the input.
var (
	ErrInvalidSecretHash = errors.New("invalid secretHash format")
	ErrInvalidAmount     = errors.New("invalid amount format")
	ErrAmountTooSmall    = errors.New("swap amount too small")
	ErrAmountTooLarge    = errors.New("swap amount too large")
	ErrUnsupportedToken  = errors.New("unsupported token")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrMinAboveExpected  = errors.New("minAmount exceeds expected output")
	ErrRateLimitExceeded = errors.New("rate limit exceeded: maximum swaps per hour reached")
	ErrNoRouteFound      = errors.New("no viable swap route found")
)

// Lifecycle errors.
var (
	ErrInvalidState       = errors.New("invalid order state for this transition")
	ErrSecretMismatch     = errors.New("secret does not match hash")
	ErrTimelockExpired    = errors.New("timelock expired")
	ErrTimelockNotExpired = errors.New("timelock has not expired")
	ErrSlippageExceeded   = errors.New("current estimate below minAmount")
	ErrConsensusRequired  = errors.New("2-of-3 consensus not achieved")
)
