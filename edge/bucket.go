package edge

import (
	"sync"
	"time"

	"github.com/clipperhouse/instant"
)

// bucket is a token bucket expressed as a theoretical arrival time (tat): the
// instant at which the bucket is full again. A bucket whose tat is not after
// the event time is full. Only forward arithmetic is used on instants, so an
// early epoch can never underflow.
type bucket struct {
	tat instant.Instant
	// last is the timestamp of the most recently accepted event
	last instant.Instant
	seen bool
	// deleted is set by GC, under mu, once the bucket is removed from the map
	deleted bool
	mu      sync.RWMutex
}

func newBucket(executionTime instant.Instant) *bucket {
	return &bucket{
		tat: executionTime,
	}
}

// check reports whether the bucket has a token at executionTime, and the
// interval since the last accepted event. It returns an error if executionTime
// precedes the last accepted event.
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) check(executionTime instant.Instant, limit Limit) (allowed bool, interval time.Duration, err error) {
	if b.seen {
		interval, err = executionTime.DurationSince(b.last)
		if err != nil {
			return false, 0, err
		}
	}
	return b.hasToken(executionTime, limit), interval, nil
}

// hasToken checks if a token is available in the bucket
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) hasToken(executionTime instant.Instant, limit Limit) bool {
	backlog, err := b.backlogAfter(executionTime, limit)
	if err != nil {
		return false
	}
	return backlog <= limit.burst()
}

// consumeToken removes one token from the bucket and records the event
// ⚠️ assumes the caller has locked appropriately, and checked hasToken
func (b *bucket) consumeToken(executionTime instant.Instant, limit Limit) {
	tat, err := instant.Max(b.tat, executionTime).Add(limit.durationPerToken)
	if err != nil {
		return
	}
	b.tat = tat
	b.last = executionTime
	b.seen = true
}

// backlogAfter returns how far the tat would be ahead of executionTime,
// after consuming a token
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) backlogAfter(executionTime instant.Instant, limit Limit) (time.Duration, error) {
	tat, err := instant.Max(b.tat, executionTime).Add(limit.durationPerToken)
	if err != nil {
		return 0, err
	}
	return tat.DurationSince(executionTime)
}

// remainingTokens returns the number of tokens remaining in the bucket
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) remainingTokens(executionTime instant.Instant, limit Limit) int64 {
	backlog := b.tat.SaturatingDurationSince(executionTime)
	burst := limit.burst()
	if backlog >= burst {
		return 0
	}
	return int64((burst - backlog) / limit.durationPerToken)
}

// retryAfter returns the duration after executionTime at which a token
// will be available, or zero if one is available now
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) retryAfter(executionTime instant.Instant, limit Limit) time.Duration {
	backlog, err := b.backlogAfter(executionTime, limit)
	if err != nil {
		return 0
	}
	if backlog <= limit.burst() {
		return 0
	}
	return backlog - limit.burst()
}

// isFull reports whether the bucket has refilled completely by executionTime,
// in which case it is equivalent to a new bucket
// ⚠️ assumes the caller has locked appropriately
func (b *bucket) isFull(executionTime instant.Instant) bool {
	return !b.tat.After(executionTime)
}
