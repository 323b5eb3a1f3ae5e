package instant

import "slices"

// Min returns the earlier of a and b.
func Min(a, b Instant) Instant {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of a and b.
func Max(a, b Instant) Instant {
	if b.After(a) {
		return b
	}
	return a
}

// Oldest returns the earliest of ts. It returns false if ts is empty.
func Oldest(ts ...Instant) (Instant, bool) {
	if len(ts) == 0 {
		return Instant{}, false
	}
	return slices.MinFunc(ts, Instant.Compare), true
}

// Newest returns the latest of ts. It returns false if ts is empty.
func Newest(ts ...Instant) (Instant, bool) {
	if len(ts) == 0 {
		return Instant{}, false
	}
	return slices.MaxFunc(ts, Instant.Compare), true
}

// Sort sorts ts in place, oldest first.
func Sort(ts []Instant) {
	slices.SortFunc(ts, Instant.Compare)
}
