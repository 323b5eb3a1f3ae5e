package edge

import (
	"fmt"
	"time"
)

// Limit is the number of events accepted per period, per key.
type Limit struct {
	count            int64
	period           time.Duration
	durationPerToken time.Duration
}

// NewLimit creates a new limit with the given count and period.
// For example, to accept at most 10 edges per second on a line, use:
//
//	limit := edge.NewLimit(10, time.Second)
//
// NewLimit panics if count or period is not positive. The per-token
// duration is never less than a nanosecond.
func NewLimit(count int64, period time.Duration) Limit {
	if count <= 0 {
		panic(fmt.Sprintf("edge: limit count must be positive, got %d", count))
	}
	if period <= 0 {
		panic(fmt.Sprintf("edge: limit period must be positive, got %s", period))
	}
	durationPerToken := period / time.Duration(count)
	if durationPerToken <= 0 {
		durationPerToken = time.Nanosecond
	}
	return Limit{
		count:            count,
		period:           period,
		durationPerToken: durationPerToken,
	}
}

// Debounce creates a limit accepting one event per interval, i.e. an
// edge is dropped if it arrives within interval of the last accepted one.
func Debounce(interval time.Duration) Limit {
	return NewLimit(1, interval)
}

// String describes the limit as edges per period, or as a debounce
// interval when one edge is accepted per period.
func (l Limit) String() string {
	if l.count == 1 {
		return "debounce " + l.period.String()
	}
	return fmt.Sprintf("%d edges per %s", l.count, l.period)
}

func (l Limit) Count() int64 {
	return l.count
}

func (l Limit) Period() time.Duration {
	return l.period
}

func (l Limit) DurationPerToken() time.Duration {
	return l.durationPerToken
}

// burst is the backlog a full bucket can absorb; it differs from period
// when period does not divide evenly by count
func (l Limit) burst() time.Duration {
	return l.durationPerToken * time.Duration(l.count)
}
