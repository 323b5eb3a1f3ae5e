package clock

import (
	"sync"
	"time"

	"github.com/clipperhouse/instant"
)

// Manual is a Source whose time only changes when told to.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.RWMutex
	now instant.Instant
}

// NewManual returns a Manual clock reading start.
func NewManual(start instant.Instant) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() instant.Instant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to t. Moving it backwards is allowed, which
// is useful for testing consumers against out-of-order timestamps.
func (m *Manual) Set(t instant.Instant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and returns the new reading.
// On error the clock is unchanged.
func (m *Manual) Advance(d time.Duration) (instant.Instant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.now.AddAssign(d); err != nil {
		return m.now, err
	}
	return m.now, nil
}
