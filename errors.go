package instant

import "github.com/pkg/errors"

var (
	// ErrOutOfOrder is returned when the earlier operand of a subtraction is
	// actually after the later one.
	ErrOutOfOrder = errors.New("instants out of order")

	// ErrDurationOverflow is returned when an elapsed time does not fit in a time.Duration.
	ErrDurationOverflow = errors.New("elapsed time overflows duration")

	// ErrNegativeDuration is returned when a negative time.Duration is added to
	// or subtracted from an Instant. Elapsed time is never negative.
	ErrNegativeDuration = errors.New("negative duration")

	// ErrOverflow is returned when advancing an Instant exceeds the counter range.
	ErrOverflow = errors.New("instant overflow")

	// ErrUnderflow is returned when moving an Instant back past the epoch.
	ErrUnderflow = errors.New("instant underflow")
)
