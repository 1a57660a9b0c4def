package profile

import "sync"

// Breaker thresholds sized for the auth flow: the reconciler's profile fetch
// already tolerates a slow read or two, so three consecutive failures mean
// the database is genuinely down, and a single good read proves it is back.
const (
	defaultTripAfter  = 3
	defaultCloseAfter = 1
)

// storeBreaker guards the profile store's delegate. Consecutive failures
// trip it open; while open, reads prefer the profile cache and successful
// probes close it again.
type storeBreaker struct {
	mu         sync.Mutex
	open       bool
	failures   int
	successes  int
	tripAfter  int
	closeAfter int
}

func newStoreBreaker(tripAfter, closeAfter int) *storeBreaker {
	if tripAfter <= 0 {
		tripAfter = defaultTripAfter
	}
	if closeAfter <= 0 {
		closeAfter = defaultCloseAfter
	}
	return &storeBreaker{tripAfter: tripAfter, closeAfter: closeAfter}
}

func (b *storeBreaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// recordFailure counts a delegate failure. fallback reports whether the
// caller should serve from cache, tripped whether this failure opened the
// circuit.
func (b *storeBreaker) recordFailure() (fallback, tripped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	if b.open {
		return true, false
	}
	if b.failures >= b.tripAfter {
		b.open = true
		return true, true
	}
	return false, false
}

// recordSuccess counts a delegate success. closed reports whether this
// success closed an open circuit.
func (b *storeBreaker) recordSuccess() (closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		b.successes++
		if b.successes >= b.closeAfter {
			b.open = false
			b.failures = 0
			b.successes = 0
			return true
		}
		return false
	}
	b.failures = 0
	return false
}
