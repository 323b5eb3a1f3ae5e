package edge

import (
	"github.com/clipperhouse/instant"
	"github.com/clipperhouse/instant/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Gate accepts or drops edge events per key, according to a [Limit] and the
// events' own timestamps. It is safe for concurrent use.
type Gate[TKey comparable] struct {
	keyer   Keyer[TKey]
	limit   Limit
	buckets syncMap[TKey, *bucket]
	clock   clock.Source
	logger  *zap.Logger

	accepted   atomic.Int64
	dropped    atomic.Int64
	outOfOrder atomic.Int64
}

type config struct {
	clock  clock.Source
	logger *zap.Logger
}

// Option configures a [Gate].
type Option func(*config)

// WithLogger sets the logger for dropped and out-of-order events.
// The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock sets the clock [Gate.GC] uses to decide which buckets are
// no longer relevant. The default is [clock.Monotonic].
func WithClock(source clock.Source) Option {
	return func(c *config) {
		c.clock = source
	}
}

// NewGate creates a new gate.
func NewGate[TKey comparable](keyer Keyer[TKey], limit Limit, opts ...Option) *Gate[TKey] {
	c := config{
		clock:  clock.Monotonic(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Gate[TKey]{
		keyer:  keyer,
		limit:  limit,
		clock:  c.clock,
		logger: c.logger,
	}
}

// Limit returns the gate's limit.
func (g *Gate[TKey]) Limit() Limit {
	return g.limit
}

// Allow returns true if the event is accepted, consuming a token from its
// key's bucket. If false, no token is consumed.
//
// Events older than the last accepted event on the same key are dropped.
func (g *Gate[TKey]) Allow(e Event) bool {
	allowed, _ := g.allow(e, false)
	return allowed
}

// AllowWithDetails is like [Gate.Allow], and returns details about the
// decision, such as the interval since the previous accepted event.
func (g *Gate[TKey]) AllowWithDetails(e Event) (bool, Details[TKey]) {
	return g.allow(e, true)
}

func (g *Gate[TKey]) allow(e Event, withDetails bool) (bool, Details[TKey]) {
	key := g.keyer(e)
	b := g.lockBucket(key, e.Timestamp)
	defer b.mu.Unlock()

	allowed, interval, err := b.check(e.Timestamp, g.limit)
	if allowed {
		b.consumeToken(e.Timestamp, g.limit)
	}
	g.record(e, allowed, err)

	if !withDetails {
		return allowed, Details[TKey]{}
	}
	return allowed, Details[TKey]{
		allowed:         allowed,
		event:           e,
		key:             key,
		remainingTokens: b.remainingTokens(e.Timestamp, g.limit),
		retryAfter:      b.retryAfter(e.Timestamp, g.limit),
		interval:        interval,
		err:             err,
	}
}

// lockBucket returns the live bucket for key, locked for writing. A bucket
// deleted by GC between loading and locking is discarded, and the key is
// loaded again.
func (g *Gate[TKey]) lockBucket(key TKey, executionTime instant.Instant) *bucket {
	for {
		b := g.buckets.loadOrStore(key, func() *bucket {
			return newBucket(executionTime)
		})
		b.mu.Lock()
		if !b.deleted {
			return b
		}
		b.mu.Unlock()
	}
}

// Peek returns true if the event would be accepted, but consumes no tokens
// and mutates no state.
func (g *Gate[TKey]) Peek(e Event) bool {
	allowed, _ := g.peek(e)
	return allowed
}

// PeekWithDetails is like [Gate.Peek], and returns details about the decision.
func (g *Gate[TKey]) PeekWithDetails(e Event) (bool, Details[TKey]) {
	return g.peek(e)
}

func (g *Gate[TKey]) peek(e Event) (bool, Details[TKey]) {
	key := g.keyer(e)
	b, ok := g.buckets.load(key)
	if !ok {
		// a missing bucket is a full bucket
		b = newBucket(e.Timestamp)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	allowed, interval, err := b.check(e.Timestamp, g.limit)
	remaining := b.remainingTokens(e.Timestamp, g.limit)
	return allowed, Details[TKey]{
		allowed:         allowed,
		event:           e,
		key:             key,
		remainingTokens: remaining,
		retryAfter:      b.retryAfter(e.Timestamp, g.limit),
		interval:        interval,
		err:             err,
	}
}

// Wrap returns a callback that forwards accepted events to cb, and drops the rest.
// Use it to debounce an interrupt callback.
func (g *Gate[TKey]) Wrap(cb func(Event)) func(Event) {
	return func(e Event) {
		if g.Allow(e) {
			cb(e)
		}
	}
}

func (g *Gate[TKey]) record(e Event, allowed bool, err error) {
	switch {
	case err != nil:
		g.dropped.Inc()
		if errors.Is(err, instant.ErrOutOfOrder) {
			g.outOfOrder.Inc()
		}
		g.logger.Warn("edge event dropped",
			zap.Uint32("line", e.Line),
			zap.Stringer("edge", e.Edge),
			instant.Field("timestamp", e.Timestamp),
			zap.Error(err),
		)
	case allowed:
		g.accepted.Inc()
	default:
		g.dropped.Inc()
		if ce := g.logger.Check(zap.DebugLevel, "edge event limited"); ce != nil {
			ce.Write(
				zap.Uint32("line", e.Line),
				zap.Stringer("edge", e.Edge),
				instant.Field("timestamp", e.Timestamp),
			)
		}
	}
}

// GC deletes buckets that are full, i.e, buckets for which enough
// time has passed that they are no longer relevant. A full bucket
// and a non-existent bucket have the same semantics, except that
// a deleted bucket forgets its last accepted event, so an older
// event on that key is no longer detected as out of order.
//
// Without GC, buckets (memory) will grow unbounded.
func (g *Gate[TKey]) GC() (deleted int64) {
	now := g.clock.Now()
	g.buckets.rangeFunc(func(key TKey, b *bucket) bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.isFull(now) {
			b.deleted = true
			g.buckets.delete(key)
			deleted++
		}
		return true
	})
	if deleted > 0 {
		g.logger.Debug("edge buckets collected", zap.Int64("deleted", deleted))
	}
	return deleted
}

// Clear deletes all buckets. This is semantically
// equivalent to refilling all buckets.
func (g *Gate[TKey]) Clear() {
	g.buckets.clear()
}

// Stats are counters of a gate's decisions since it was created, and
// the number of buckets it currently holds.
type Stats struct {
	Accepted int64
	// Dropped includes OutOfOrder
	Dropped    int64
	OutOfOrder int64
	// Buckets is the number of keys currently tracked
	Buckets int
}

// Stats returns the gate's counters.
func (g *Gate[TKey]) Stats() Stats {
	return Stats{
		Accepted:   g.accepted.Load(),
		Dropped:    g.dropped.Load(),
		OutOfOrder: g.outOfOrder.Load(),
		Buckets:    g.buckets.count(),
	}
}
