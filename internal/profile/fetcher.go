package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"movido/internal/platform/metrics"
	dErrors "movido/pkg/domain-errors"
)

const defaultFetchTimeout = 5 * time.Second

// Fetcher reads and writes profiles on behalf of the session reconciler.
//
// Fetch never fails: the read path degrades to "no profile" on any error or
// timeout, with a best-effort diagnostic log. Update is a write path and
// surfaces typed errors to the caller.
type Fetcher struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

type FetcherOption func(*Fetcher)

func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// NewFetcher constructs a Fetcher over the given store.
func NewFetcher(store Store, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:   store,
		timeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch retrieves the profile for an identity id, bounded by the fetch
// timeout. Concurrent fetches for the same id share one store read.
// All failure paths return nil.
func (f *Fetcher) Fetch(ctx context.Context, id uuid.UUID) *Profile {
	v, err, _ := f.group.Do(id.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return f.store.FindByID(fetchCtx, id)
	})
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrNotFound) {
			// a missing row is expected for fresh sign-ups
			level = slog.LevelInfo
		} else if f.metrics != nil {
			f.metrics.IncrementProfileFetchFailures()
		}
		f.logger.Log(ctx, level, "profile fetch miss",
			"profile_id", id.String(),
			"error", err,
		)
		return nil
	}
	return v.(*Profile)
}

// Update writes a partial change set through to the store and returns the
// canonical record. Unlike Fetch, errors are surfaced.
func (f *Fetcher) Update(ctx context.Context, id uuid.UUID, changes Changes) (*Profile, error) {
	updated, err := f.store.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile update failed")
	}
	return updated, nil
}
