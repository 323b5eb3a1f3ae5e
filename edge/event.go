// Package edge gates edge interrupt events by their timestamps: a per-line
// token bucket that debounces or rate limits events before they reach a
// callback.
package edge

import "github.com/clipperhouse/instant"

// Edge is the direction of a level transition on an input line.
type Edge int

const (
	_ Edge = iota
	// Rising is a low to high transition.
	Rising
	// Falling is a high to low transition.
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "unknown"
}

// Event is a single edge on a line, timestamped by the interrupt source
// at the moment it was detected.
type Event struct {
	Line      uint32
	Edge      Edge
	Timestamp instant.Instant
}

// Keyer is a function that takes an event and returns a bucket key.
type Keyer[TKey comparable] func(e Event) TKey

// ByLine keys events by line, so that each line is gated independently.
func ByLine(e Event) uint32 {
	return e.Line
}

// ByLineAndEdge keys events by line and direction, so rising and falling
// edges on a line are gated independently.
func ByLineAndEdge(e Event) LineEdge {
	return LineEdge{Line: e.Line, Edge: e.Edge}
}

// LineEdge is the key returned by [ByLineAndEdge].
type LineEdge struct {
	Line uint32
	Edge Edge
}
