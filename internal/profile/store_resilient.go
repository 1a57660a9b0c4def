package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResilientStore wraps a Store with circuit breaker protection. When the
// circuit opens (after consecutive failures), it serves recently seen
// profiles from a TTL cache, preventing cascade failures from taking the
// auth flow down with the database.
type ResilientStore struct {
	delegate Store
	cb       *storeBreaker
	cache    *profileCache
	logger   *slog.Logger
}

// ResilientStoreOption configures the resilient store.
type ResilientStoreOption func(*ResilientStore)

// WithBreakerThresholds overrides how many consecutive failures trip the
// breaker and how many successes close it again. Non-positive values keep
// the defaults.
func WithBreakerThresholds(tripAfter, closeAfter int) ResilientStoreOption {
	return func(r *ResilientStore) {
		r.cb = newStoreBreaker(tripAfter, closeAfter)
	}
}

// WithCacheTTL sets the cache TTL for profile records.
func WithCacheTTL(ttl time.Duration) ResilientStoreOption {
	return func(r *ResilientStore) {
		r.cache = newProfileCache(ttl)
	}
}

// WithResilientLogger sets the logger used for circuit transitions.
func WithResilientLogger(logger *slog.Logger) ResilientStoreOption {
	return func(r *ResilientStore) {
		r.logger = logger
	}
}

// NewResilientStore creates a circuit-breaker-protected profile store.
func NewResilientStore(delegate Store, opts ...ResilientStoreOption) *ResilientStore {
	r := &ResilientStore{
		delegate: delegate,
		cb:       newStoreBreaker(defaultTripAfter, defaultCloseAfter),
		cache:    newProfileCache(5 * time.Minute),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindByID reads a profile with circuit breaker protection.
// On success: caches the result and records success.
// On failure: records failure, returns cached data if the circuit is open.
func (r *ResilientStore) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if r.cb.isOpen() {
		if cached, ok := r.cache.Get(id); ok {
			r.logger.WarnContext(ctx, "circuit open, using cached profile",
				"profile_id", id.String(),
			)
			return cached, nil
		}
		// No cache hit and circuit open, still try the delegate so the
		// circuit can close again.
	}

	p, err := r.delegate.FindByID(ctx, id)
	if err != nil {
		// A missing row is an answer, not a store failure.
		if errors.Is(err, ErrNotFound) {
			r.recordSuccess(ctx)
			return nil, err
		}
		fallback, tripped := r.cb.recordFailure()
		if tripped {
			r.logger.ErrorContext(ctx, "profile store circuit breaker opened",
				"error", err,
			)
		}
		if fallback {
			if cached, ok := r.cache.Get(id); ok {
				r.logger.WarnContext(ctx, "using cached profile after store failure",
					"profile_id", id.String(),
				)
				return cached, nil
			}
		}
		return nil, err
	}

	r.recordSuccess(ctx)
	r.cache.Set(id, p)
	return p, nil
}

// Update writes through to the delegate and refreshes the cache with the
// canonical record on success.
func (r *ResilientStore) Update(ctx context.Context, id uuid.UUID, changes Changes) (*Profile, error) {
	p, err := r.delegate.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if _, tripped := r.cb.recordFailure(); tripped {
			r.logger.ErrorContext(ctx, "profile store circuit breaker opened",
				"error", err,
			)
		}
		return nil, err
	}

	r.recordSuccess(ctx)
	r.cache.Set(id, p)
	return p, nil
}

func (r *ResilientStore) recordSuccess(ctx context.Context) {
	if r.cb.recordSuccess() {
		r.logger.InfoContext(ctx, "profile store circuit breaker closed")
	}
}

var _ Store = (*ResilientStore)(nil)

type cachedProfile struct {
	profile Profile
	expires time.Time
}

type profileCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]cachedProfile
}

func newProfileCache(ttl time.Duration) *profileCache {
	return &profileCache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]cachedProfile),
	}
}

func (c *profileCache) Get(id uuid.UUID) (*Profile, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	cp := entry.profile
	return &cp, true
}

func (c *profileCache) Set(id uuid.UUID, p *Profile) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.entries[id] = cachedProfile{profile: *p, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
