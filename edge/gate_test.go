package edge

import (
	"sync"
	"testing"
	"time"

	"github.com/clipperhouse/instant"
	"github.com/clipperhouse/instant/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func at(ns uint64) instant.Instant {
	return instant.FromNanos(ns)
}

func TestGate_Debounce(t *testing.T) {
	t.Parallel()

	gate := NewGate(ByLine, Debounce(50*time.Millisecond))

	// a bouncing switch: one press, several spurious edges within a few ms
	start := uint64(time.Second)
	events := []struct {
		offset   time.Duration
		expected bool
	}{
		{0, true},
		{time.Millisecond, false},
		{3 * time.Millisecond, false},
		{49 * time.Millisecond, false},
		{50 * time.Millisecond, true},
		{60 * time.Millisecond, false},
		{200 * time.Millisecond, true},
	}

	for _, ev := range events {
		e := Event{Line: 17, Edge: Rising, Timestamp: at(start + uint64(ev.offset))}
		actual := gate.Allow(e)
		require.Equal(t, ev.expected, actual, "event at +%v", ev.offset)
	}

	stats := gate.Stats()
	require.Equal(t, int64(3), stats.Accepted)
	require.Equal(t, int64(4), stats.Dropped)
	require.Equal(t, int64(0), stats.OutOfOrder)
}

func TestGate_Lines(t *testing.T) {
	t.Parallel()

	gate := NewGate(ByLine, Debounce(time.Second))
	ts := at(100)

	require.True(t, gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: ts}))
	require.True(t, gate.Allow(Event{Line: 2, Edge: Rising, Timestamp: ts}), "lines are gated independently")
	require.False(t, gate.Allow(Event{Line: 1, Edge: Falling, Timestamp: ts}), "edges on one line share a bucket")
}

func TestGate_LineAndEdge(t *testing.T) {
	t.Parallel()

	gate := NewGate(ByLineAndEdge, Debounce(time.Second))
	ts := at(100)

	require.True(t, gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: ts}))
	require.True(t, gate.Allow(Event{Line: 1, Edge: Falling, Timestamp: ts}), "directions are gated independently")
	require.False(t, gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: ts}))
}

func TestGate_AllowWithDetails(t *testing.T) {
	t.Parallel()

	limit := NewLimit(2, 200*time.Nanosecond)
	gate := NewGate(ByLine, limit)

	ts1 := Event{Line: 4, Edge: Rising, Timestamp: at(100)}
	ts2 := Event{Line: 4, Edge: Falling, Timestamp: at(300)}

	{
		allowed, details := gate.AllowWithDetails(ts1)
		require.True(t, allowed)
		require.True(t, details.Allowed())
		require.Equal(t, ts1, details.Event())
		require.Equal(t, uint32(4), details.Key())
		require.Equal(t, int64(1), details.TokensRemaining())
		require.Equal(t, time.Duration(0), details.RetryAfter())
		require.Equal(t, time.Duration(0), details.Interval(), "first event on a line has no interval")
		require.NoError(t, details.Err())
	}
	{
		allowed, details := gate.AllowWithDetails(ts2)
		require.True(t, allowed)
		require.Equal(t, 200*time.Nanosecond, details.Interval(), "interval should be the time since the previous event")
		require.Equal(t, int64(1), details.TokensRemaining())
	}
	{
		e := Event{Line: 4, Edge: Rising, Timestamp: at(300)}
		require.True(t, gate.Allow(e))

		allowed, details := gate.AllowWithDetails(e)
		require.False(t, allowed, "bucket should be empty")
		require.NoError(t, details.Err(), "a limited event is not an error")
		require.Equal(t, int64(0), details.TokensRemaining())
		require.Equal(t, 100*time.Nanosecond, details.RetryAfter())
	}
}

func TestGate_OutOfOrder(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	gate := NewGate(ByLine, NewLimit(10, time.Second), WithLogger(zap.New(core)))

	require.True(t, gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: at(300)}))

	allowed, details := gate.AllowWithDetails(Event{Line: 1, Edge: Falling, Timestamp: at(100)})
	require.False(t, allowed, "an event older than the last accepted one should be dropped")
	require.ErrorIs(t, details.Err(), instant.ErrOutOfOrder)

	// a different line has its own history
	require.True(t, gate.Allow(Event{Line: 2, Edge: Falling, Timestamp: at(100)}))

	stats := gate.Stats()
	require.Equal(t, Stats{Accepted: 2, Dropped: 1, OutOfOrder: 1, Buckets: 2}, stats)

	entries := logs.FilterMessage("edge event dropped").All()
	require.Len(t, entries, 1)
	require.Equal(t, uint32(1), entries[0].ContextMap()["line"])
	require.Equal(t, "falling", entries[0].ContextMap()["edge"])
}

func TestGate_Peek(t *testing.T) {
	t.Parallel()

	gate := NewGate(ByLine, Debounce(time.Second))
	e := Event{Line: 3, Edge: Rising, Timestamp: at(100)}

	for range 3 {
		require.True(t, gate.Peek(e), "peek should not consume tokens")
	}
	require.Equal(t, 0, gate.buckets.count(), "peek should not create buckets")

	require.True(t, gate.Allow(e))
	require.False(t, gate.Peek(e))

	{
		allowed, details := gate.PeekWithDetails(Event{Line: 3, Edge: Rising, Timestamp: at(50)})
		require.False(t, allowed)
		require.ErrorIs(t, details.Err(), instant.ErrOutOfOrder)
	}
	{
		later := at(100 + uint64(time.Second))
		allowed, details := gate.PeekWithDetails(Event{Line: 3, Edge: Rising, Timestamp: later})
		require.True(t, allowed)
		require.Equal(t, time.Second, details.Interval())
	}

	require.Equal(t, Stats{Accepted: 1, Buckets: 1}, gate.Stats(), "peek should not count decisions")
}

func TestGate_Wrap(t *testing.T) {
	t.Parallel()

	gate := NewGate(ByLine, Debounce(10*time.Millisecond))

	var received []Event
	callback := gate.Wrap(func(e Event) {
		received = append(received, e)
	})

	first := Event{Line: 5, Edge: Rising, Timestamp: at(uint64(time.Millisecond))}
	bounce := Event{Line: 5, Edge: Falling, Timestamp: at(uint64(2 * time.Millisecond))}
	second := Event{Line: 5, Edge: Falling, Timestamp: at(uint64(20 * time.Millisecond))}

	callback(first)
	callback(bounce)
	callback(second)

	require.Equal(t, []Event{first, second}, received)
}

func TestGate_GC(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(at(0))
	core, logs := observer.New(zapcore.DebugLevel)
	gate := NewGate(ByLine, Debounce(time.Second), WithClock(clk), WithLogger(zap.New(core)))

	for line := range uint32(10) {
		require.True(t, gate.Allow(Event{Line: line, Edge: Rising, Timestamp: clk.Now()}))
	}
	require.Equal(t, 10, gate.buckets.count())

	{
		deleted := gate.GC()
		require.Equal(t, int64(0), deleted, "no bucket has refilled yet")
	}

	_, err := clk.Advance(500 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, gate.Allow(Event{Line: 10, Edge: Rising, Timestamp: clk.Now()}))

	_, err = clk.Advance(500 * time.Millisecond)
	require.NoError(t, err)
	{
		deleted := gate.GC()
		require.Equal(t, int64(10), deleted, "buckets that have refilled should be deleted")
		require.Equal(t, 1, gate.buckets.count())
	}
	require.Len(t, logs.FilterMessage("edge buckets collected").All(), 1)

	require.Equal(t, 1, gate.Stats().Buckets)

	gate.Clear()
	require.Equal(t, 0, gate.buckets.count())
	require.Equal(t, 0, gate.Stats().Buckets)
}

func TestGate_GC_FetchedBucket(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(at(uint64(10 * time.Second)))
	gate := NewGate(ByLine, Debounce(time.Second), WithClock(clk))
	const line uint32 = 9

	// a bucket fetched for an event, then collected before it is locked
	stale := gate.buckets.loadOrStore(line, func() *bucket {
		return newBucket(clk.Now())
	})
	require.Equal(t, int64(1), gate.GC(), "a fresh bucket is full and should be collected")

	stale.mu.Lock()
	require.True(t, stale.deleted, "GC should mark the bucket it removes")
	stale.mu.Unlock()

	{
		live := gate.lockBucket(line, clk.Now())
		require.False(t, live == stale, "a collected bucket should not be reused")
		require.False(t, live.deleted)
		live.mu.Unlock()
	}

	// one edge per debounce interval, even across a collection
	require.True(t, gate.Allow(Event{Line: line, Edge: Rising, Timestamp: clk.Now()}))
	require.False(t, gate.Allow(Event{Line: line, Edge: Falling, Timestamp: at(uint64(10*time.Second + time.Millisecond))}))
	require.False(t, stale.seen, "the collected bucket should not record events")
}

func TestGate_GC_Concurrent(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(at(uint64(time.Hour)))
	gate := NewGate(ByLine, Debounce(time.Second), WithClock(clk))
	ts := clk.Now()

	const concurrency = 50

	var wg sync.WaitGroup
	wg.Add(2 * concurrency)
	for range concurrency {
		go func() {
			defer wg.Done()
			gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: ts})
		}()
		go func() {
			defer wg.Done()
			gate.GC()
		}()
	}
	wg.Wait()

	// buckets holding an accepted edge are not full at ts, so GC never
	// removes them, and only one edge is accepted in the interval
	require.Equal(t, int64(1), gate.Stats().Accepted)
}

func TestGate_Concurrent(t *testing.T) {
	t.Parallel()

	limit := NewLimit(100, time.Second)
	gate := NewGate(ByLine, limit)
	ts := at(uint64(time.Hour))

	const concurrency = 50
	const calls = 10

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for range concurrency {
		go func() {
			defer wg.Done()
			for range calls {
				e := Event{Line: 1, Edge: Rising, Timestamp: ts}
				gate.Allow(e)
				gate.Peek(e)
				gate.AllowWithDetails(e)
			}
		}()
	}
	wg.Wait()

	stats := gate.Stats()
	require.Equal(t, limit.Count(), stats.Accepted, "exactly the limit should be accepted at one instant")
	require.Equal(t, int64(2*concurrency*calls)-limit.Count(), stats.Dropped)
}

func TestEdge_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "rising", Rising.String())
	require.Equal(t, "falling", Falling.String())
	require.Equal(t, "unknown", Edge(0).String())
}

func BenchmarkGate_Allow(b *testing.B) {
	gate := NewGate(ByLine, NewLimit(1000, time.Second))
	ts := at(0)
	for b.Loop() {
		ts, _ = ts.Add(time.Millisecond)
		gate.Allow(Event{Line: 1, Edge: Rising, Timestamp: ts})
	}
}
