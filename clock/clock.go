// Package clock samples monotonic time as [instant.Instant] values.
// Intended for producers of event timestamps, such as interrupt handlers,
// and for tests that need to control time.
package clock

import (
	"github.com/clipperhouse/instant"
	"github.com/clipperhouse/ntime"
)

// Source produces Instants. Successive calls on one Source never go backwards.
type Source interface {
	Now() instant.Instant
}

// Monotonic returns a Source backed by the system's monotonic clock.
//
// On Linux this is CLOCK_MONOTONIC, the clock the kernel uses to timestamp
// GPIO line events, so Instants sampled here are comparable with those.
// Elsewhere, the count is measured from an epoch taken at process start.
func Monotonic() Source {
	return monotonic{}
}

type monotonic struct{}

func (monotonic) Now() instant.Instant {
	return now()
}

// fallback reads the process-relative monotonic time
func fallback() instant.Instant {
	t := ntime.Now()
	if t < 0 {
		return instant.Instant{}
	}
	return instant.FromNanos(uint64(t))
}
