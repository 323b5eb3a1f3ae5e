package edge

import "time"

// Details contains the outcome of gating a single event.
type Details[TKey comparable] struct {
	allowed         bool
	event           Event
	key             TKey
	remainingTokens int64
	retryAfter      time.Duration
	interval        time.Duration
	err             error
}

// Allowed returns true if the event was accepted.
func (d Details[TKey]) Allowed() bool {
	return d.allowed
}

// Event returns the event that was gated.
func (d Details[TKey]) Event() Event {
	return d.event
}

// Key returns the bucket key of the event.
func (d Details[TKey]) Key() TKey {
	return d.key
}

// TokensRemaining returns the number of events the key's bucket will accept
// at the event's timestamp, after this one.
func (d Details[TKey]) TokensRemaining() int64 {
	return d.remainingTokens
}

// RetryAfter returns how long after the event's timestamp a further event
// on the same key would be accepted. Zero if one would be accepted now.
func (d Details[TKey]) RetryAfter() time.Duration {
	return d.retryAfter
}

// Interval returns the time between the previously accepted event on the
// same key and this one. Zero for the first event on a key.
func (d Details[TKey]) Interval() time.Duration {
	return d.interval
}

// Err returns why the event could not be evaluated, for example
// [instant.ErrOutOfOrder] if it is older than the last accepted event.
// A nil error with Allowed false means the event was rate limited.
func (d Details[TKey]) Err() error {
	return d.err
}
