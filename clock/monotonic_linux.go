//go:build linux

package clock

import (
	"github.com/clipperhouse/instant"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// lastGood is the latest CLOCK_MONOTONIC sample seen by this process
var lastGood atomic.Pointer[instant.Instant]

func now() instant.Instant {
	return sample(&lastGood, unix.ClockGettime)
}

// sample reads CLOCK_MONOTONIC and records the reading in last. If the read
// fails, it returns the latest good reading, so samples never go backwards;
// the process-relative fallback is used only if no read has ever succeeded,
// since it counts from a different epoch.
func sample(last *atomic.Pointer[instant.Instant], read func(clockid int32, ts *unix.Timespec) error) instant.Instant {
	var ts unix.Timespec
	if err := read(unix.CLOCK_MONOTONIC, &ts); err != nil {
		if prev := last.Load(); prev != nil {
			return *prev
		}
		return fallback()
	}

	t := instant.FromTimespec(int64(ts.Sec), int64(ts.Nsec))
	for {
		prev := last.Load()
		if prev != nil && !t.After(*prev) {
			return t
		}
		if last.CompareAndSwap(prev, &t) {
			return t
		}
	}
}
