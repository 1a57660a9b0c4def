// Package auth owns the local view of authentication state. The reconciler
// merges an initial session snapshot with the identity provider's event
// stream, which can deliver in either order relative to the snapshot; both
// feed a single serialized transition queue so readers always observe a
// consistent state.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"movido/internal/identity"
	"movido/internal/platform/metrics"
	"movido/internal/profile"
	dErrors "movido/pkg/domain-errors"
)

// Provider is the identity provider surface the reconciler depends on.
// *identity.Client satisfies it; tests inject fakes.
type Provider interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	OnAuthStateChange(fn func(identity.Event, *identity.Session)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, email, password string, data map[string]any) (*identity.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
}

// ProfileService reads and writes the application profile record.
// *profile.Fetcher satisfies it.
type ProfileService interface {
	Fetch(ctx context.Context, id uuid.UUID) *profile.Profile
	Update(ctx context.Context, id uuid.UUID, changes profile.Changes) (*profile.Profile, error)
}

// Config carries the reconciliation timing knobs. The defaults match the
// provider's observed storage warm-up behavior; deployments can tune them.
type Config struct {
	// SettleDelay is waited before the snapshot read so the provider can
	// finish restoring a persisted session. A heuristic, not a guarantee.
	SettleDelay time.Duration
	// SafetyTimeout bounds the loading window: if initialization has not
	// finished by then, IsLoading is forced off without touching other fields.
	SafetyTimeout time.Duration
}

const (
	defaultSettleDelay   = 500 * time.Millisecond
	defaultSafetyTimeout = 6 * time.Second
)

// Reconciler keeps State consistent with the identity provider. Construct
// with New, call Start once, and Close on teardown.
type Reconciler struct {
	provider Provider
	profiles ProfileService
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      Config

	mu    sync.RWMutex
	state State

	applyCh chan func(*State)
	closed  chan struct{}
	done    chan struct{}

	closeOnce   sync.Once
	started     bool
	unsubscribe func()
	safety      *time.Timer
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		if cfg.SettleDelay > 0 {
			r.cfg.SettleDelay = cfg.SettleDelay
		}
		if cfg.SafetyTimeout > 0 {
			r.cfg.SafetyTimeout = cfg.SafetyTimeout
		}
	}
}

// New constructs a Reconciler. The initial state is loading with no identity.
func New(provider Provider, profiles ProfileService, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider: provider,
		profiles: profiles,
		cfg: Config{
			SettleDelay:   defaultSettleDelay,
			SafetyTimeout: defaultSafetyTimeout,
		},
		state:   State{IsLoading: true},
		applyCh: make(chan func(*State)),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Start subscribes to the provider's event stream, arms the safety timer, and
// kicks off the initialization snapshot. Call once per Reconciler lifetime.
func (r *Reconciler) Start(ctx context.Context) {
	if r.started {
		return
	}
	r.started = true

	go r.run()

	// The subscription must be live before the snapshot read goes out so an
	// event racing initialization is never lost. Arrival order between the
	// two is otherwise unconstrained.
	r.unsubscribe = r.provider.OnAuthStateChange(r.handleEvent)

	r.safety = time.AfterFunc(r.cfg.SafetyTimeout, func() {
		r.apply(func(st *State) {
			if !st.IsLoading {
				return
			}
			st.IsLoading = false
			r.logger.Warn("auth initialization overran safety timeout, forcing loading off")
			if r.metrics != nil {
				r.metrics.IncrementSafetyTimerFires()
			}
		})
	})

	go r.initialize(ctx)
}

// Close tears the reconciler down: later callbacks become no-ops, the safety
// timer is cancelled, and the event subscription is released. Idempotent.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
		if r.safety != nil {
			r.safety.Stop()
		}
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		if r.started {
			<-r.done
		}
	})
}

// State returns a read-only snapshot of the current auth state.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// GetSession reports the session held in the current auth state, nil when
// signed out. It lets the reconciler act as the session source for the
// checkout initiator.
func (r *Reconciler) GetSession(context.Context) (*identity.Session, error) {
	return r.State().Session, nil
}

// run is the single consumer of the transition queue. All state mutation
// happens here, one transition at a time.
func (r *Reconciler) run() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.applyCh:
			r.mu.Lock()
			fn(&r.state)
			r.state.normalize()
			r.mu.Unlock()
		case <-r.closed:
			return
		}
	}
}

// apply enqueues a transition. Transitions submitted after Close are dropped:
// the queue is unbuffered and the consumer is gone, so only the closed branch
// can fire.
func (r *Reconciler) apply(fn func(*State)) {
	select {
	case r.applyCh <- fn:
	case <-r.closed:
	}
}

func (r *Reconciler) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// initialize runs the snapshot half of reconciliation: settle, read the
// snapshot, resolve the profile, publish one atomic state. Snapshot errors
// are non-fatal and degrade to signed-out.
func (r *Reconciler) initialize(ctx context.Context) {
	select {
	case <-time.After(r.cfg.SettleDelay):
	case <-ctx.Done():
		return
	case <-r.closed:
		return
	}

	session, err := r.provider.GetSession(ctx)
	if err != nil {
		r.logger.Warn("session snapshot failed, continuing signed out", "error", err)
		session = nil
	}
	if r.isClosed() {
		return
	}

	if session != nil && session.User != nil {
		prof := r.profiles.Fetch(ctx, session.User.ID)
		if r.isClosed() {
			return
		}
		r.apply(func(st *State) {
			st.Identity = session.User
			st.Profile = prof
			st.Session = session
			st.IsLoading = false
		})
		r.logger.Info("session restored", "email", session.User.Email)
		return
	}

	r.apply(func(st *State) {
		*st = State{}
	})
	r.logger.Debug("no session found at initialization")
}

// handleEvent is the stream half of reconciliation. It may fire at any time
// relative to initialization; last write wins by arrival order.
func (r *Reconciler) handleEvent(event identity.Event, session *identity.Session) {
	if r.isClosed() {
		return
	}

	switch {
	case event == identity.EventSignedIn && session != nil && session.User != nil:
		prof := r.profiles.Fetch(context.Background(), session.User.ID)
		if r.isClosed() {
			return
		}
		r.apply(func(st *State) {
			st.Identity = session.User
			st.Profile = prof
			st.Session = session
			st.IsLoading = false
		})
		if r.metrics != nil {
			r.metrics.IncrementSignIns()
		}
		r.logger.Info("signed in", "email", session.User.Email)

	case event == identity.EventSignedOut:
		r.apply(func(st *State) {
			*st = State{}
		})
		if r.metrics != nil {
			r.metrics.IncrementSignOuts()
		}
		r.logger.Info("signed out")

	case event == identity.EventTokenRefreshed && session != nil:
		// Refresh carries no profile change; leave Profile as-is.
		r.apply(func(st *State) {
			st.Session = session
			if session.User != nil {
				st.Identity = session.User
			}
		})
		r.logger.Debug("session token refreshed")

	default:
		// Unknown events are ignored for forward compatibility.
	}
}

// SignIn delegates to the provider. State is not mutated here: the provider
// emits SIGNED_IN on success and the stream handler publishes the new state,
// so explicit calls and stream events cannot dual-write.
func (r *Reconciler) SignIn(ctx context.Context, email, password string) error {
	if _, err := r.provider.SignInWithPassword(ctx, email, password); err != nil {
		if r.metrics != nil {
			r.metrics.IncrementAuthFailures()
		}
		r.logger.WarnContext(ctx, "sign-in rejected", "email", email, "error", err)
		return err
	}
	return nil
}

// SignUp registers an account. When displayName is empty the local part of
// the email is used, matching what the profile bootstrap expects.
func (r *Reconciler) SignUp(ctx context.Context, email, password, displayName string) error {
	if displayName == "" {
		displayName = localPart(email)
	}
	data := map[string]any{"name": displayName}
	if _, err := r.provider.SignUp(ctx, email, password, data); err != nil {
		if r.metrics != nil {
			r.metrics.IncrementAuthFailures()
		}
		r.logger.WarnContext(ctx, "sign-up rejected", "email", email, "error", err)
		return err
	}
	return nil
}

// SignOut delegates to the provider; the SIGNED_OUT stream event clears state.
func (r *Reconciler) SignOut(ctx context.Context) error {
	if err := r.provider.SignOut(ctx); err != nil {
		if r.metrics != nil {
			r.metrics.IncrementAuthFailures()
		}
		r.logger.WarnContext(ctx, "sign-out rejected", "error", err)
		return err
	}
	return nil
}

// ResetPassword asks the provider to send a recovery link. No local state
// changes until the user completes the flow and signs in.
func (r *Reconciler) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return r.provider.ResetPasswordForEmail(ctx, email, redirectTo)
}

// UpdateProfile writes a partial profile change through to the profile store
// and merges the canonical record into local state immediately. Profile
// changes are not announced on the provider's event stream, so this is the
// one mutation that does not wait for an event.
func (r *Reconciler) UpdateProfile(ctx context.Context, changes profile.Changes) (*profile.Profile, error) {
	current := r.State()
	if current.Identity == nil {
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "not authenticated")
	}

	updated, err := r.profiles.Update(ctx, current.Identity.ID, changes)
	if err != nil {
		return nil, err
	}

	r.apply(func(st *State) {
		// The identity may have changed or gone away while the write was in
		// flight; only merge when the record still belongs to it.
		if st.Identity != nil && st.Identity.ID == updated.ID {
			st.Profile = updated
		}
	})
	return updated, nil
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
