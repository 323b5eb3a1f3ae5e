// Package instant provides an opaque, monotonic timestamp for events such as
// edge interrupts on a digital input line. An Instant counts nanoseconds since
// an arbitrary, process-local epoch; it is only meaningful relative to other
// Instants taken in the same process run.
//
// Arithmetic is checked: operations that would move an Instant out of range,
// or compute a negative elapsed time, return an error instead of wrapping.
package instant

import (
	"math"
	"math/bits"
	"time"

	"github.com/pkg/errors"
)

// Instant is a 128-bit unsigned nanosecond count since an unspecified epoch.
//
// The zero value is the epoch itself. Instants are comparable with ==, and
// ordered by [Instant.Compare].
type Instant struct {
	hi uint64
	lo uint64
}

const nanosPerSecond = uint64(time.Second)

// FromNanos returns the Instant ns nanoseconds after the epoch.
func FromNanos(ns uint64) Instant {
	return Instant{lo: ns}
}

// FromTimespec returns the Instant for a seconds + nanoseconds pair, as reported
// by clock_gettime or by the kernel on GPIO line events. Negative components are
// treated as zero.
func FromTimespec(sec, nsec int64) Instant {
	if sec < 0 {
		sec = 0
	}
	if nsec < 0 {
		nsec = 0
	}
	hi, lo := bits.Mul64(uint64(sec), nanosPerSecond)
	lo, carry := bits.Add64(lo, uint64(nsec), 0)
	return Instant{hi: hi + carry, lo: lo}
}

// FromRaw rebuilds an Instant from the words returned by [Instant.Raw].
func FromRaw(hi, lo uint64) Instant {
	return Instant{hi: hi, lo: lo}
}

// Raw returns the internal counter as high and low 64-bit words.
//
// This is exposed for logging and debugging only. Do not rely on the scale or
// origin of the returned values.
func (t Instant) Raw() (hi, lo uint64) {
	return t.hi, t.lo
}

// IsZero reports whether t is the epoch.
func (t Instant) IsZero() bool {
	return t.hi == 0 && t.lo == 0
}

// DurationSince returns the time elapsed from earlier to t.
//
// It returns [ErrOutOfOrder] if earlier is after t, and [ErrDurationOverflow]
// if the elapsed time does not fit in a time.Duration.
func (t Instant) DurationSince(earlier Instant) (time.Duration, error) {
	if t.Before(earlier) {
		return 0, errors.Wrapf(ErrOutOfOrder, "duration since %s: earlier is %s", t.nanos(), earlier.nanos())
	}
	diff := t.sub(earlier)
	if diff.hi != 0 || diff.lo > math.MaxInt64 {
		return 0, errors.Wrapf(ErrDurationOverflow, "duration since: %s ns elapsed", diff.nanos())
	}
	return time.Duration(diff.lo), nil
}

// SaturatingDurationSince is like [Instant.DurationSince], but returns zero if
// earlier is after t, and math.MaxInt64 if the elapsed time is too large.
func (t Instant) SaturatingDurationSince(earlier Instant) time.Duration {
	if t.Before(earlier) {
		return 0
	}
	diff := t.sub(earlier)
	if diff.hi != 0 || diff.lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(diff.lo)
}

// Sub returns the time elapsed from u to t. It is identical to [Instant.DurationSince].
func (t Instant) Sub(u Instant) (time.Duration, error) {
	return t.DurationSince(u)
}

// Add returns t advanced by d.
//
// It returns [ErrNegativeDuration] if d is negative, and [ErrOverflow] if the
// result does not fit the counter.
func (t Instant) Add(d time.Duration) (Instant, error) {
	if d < 0 {
		return t, errors.Wrapf(ErrNegativeDuration, "add %s", d)
	}
	lo, carry := bits.Add64(t.lo, uint64(d), 0)
	hi, carry := bits.Add64(t.hi, 0, carry)
	if carry != 0 {
		return t, errors.Wrapf(ErrOverflow, "add %s to %s", d, t.nanos())
	}
	return Instant{hi: hi, lo: lo}, nil
}

// AddAssign advances t by d in place. On error, t is unchanged.
func (t *Instant) AddAssign(d time.Duration) error {
	result, err := t.Add(d)
	if err != nil {
		return err
	}
	*t = result
	return nil
}

// SubDuration returns t moved back by d.
//
// Moving back by exactly t's count yields the zero Instant. It returns
// [ErrNegativeDuration] if d is negative, and [ErrUnderflow] if d exceeds
// t's count.
func (t Instant) SubDuration(d time.Duration) (Instant, error) {
	if d < 0 {
		return t, errors.Wrapf(ErrNegativeDuration, "subtract %s", d)
	}
	dd := Instant{lo: uint64(d)}
	if t.Before(dd) {
		return t, errors.Wrapf(ErrUnderflow, "subtract %s from %s", d, t.nanos())
	}
	return t.sub(dd), nil
}

// SubAssign moves t back by d in place. On error, t is unchanged.
func (t *Instant) SubAssign(d time.Duration) error {
	result, err := t.SubDuration(d)
	if err != nil {
		return err
	}
	*t = result
	return nil
}

// SaturatingSub is like [Instant.SubDuration], but clamps at the zero Instant.
// Negative durations are treated as zero.
func (t Instant) SaturatingSub(d time.Duration) Instant {
	if d <= 0 {
		return t
	}
	result, err := t.SubDuration(d)
	if err != nil {
		return Instant{}
	}
	return result
}

// Compare returns -1 if t is before u, +1 if t is after u, and 0 if they are equal.
func (t Instant) Compare(u Instant) int {
	switch {
	case t.hi < u.hi:
		return -1
	case t.hi > u.hi:
		return 1
	case t.lo < u.lo:
		return -1
	case t.lo > u.lo:
		return 1
	}
	return 0
}

func (t Instant) Before(u Instant) bool {
	return t.Compare(u) < 0
}

func (t Instant) After(u Instant) bool {
	return t.Compare(u) > 0
}

func (t Instant) Equal(u Instant) bool {
	return t == u
}

// sub returns t - u
// ⚠️ assumes the caller has checked that u is not after t
func (t Instant) sub(u Instant) Instant {
	lo, borrow := bits.Sub64(t.lo, u.lo, 0)
	hi, _ := bits.Sub64(t.hi, u.hi, borrow)
	return Instant{hi: hi, lo: lo}
}
