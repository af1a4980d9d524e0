package types

import "errors"

// Error taxonomy for a scan pass. Quote and gas failures are recovered
// locally by dropping the venue or candidate; threshold and deadline misses
// are skips, not errors; submission and confirmation failures end the pass
// and are retried naturally on the next one with fresh quotes.
var (
	ErrQuoteUnavailable       = errors.New("quote unavailable")
	ErrGasEstimateUnavailable = errors.New("gas estimate unavailable")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrThresholdNotMet        = errors.New("profit threshold not met")
	ErrDeadlineExpired        = errors.New("trade deadline expired")
	ErrSubmissionFailed       = errors.New("trade submission failed")
	ErrConfirmationTimeout    = errors.New("trade confirmation timeout")
)
