package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"movido/internal/identity"
	dErrors "movido/pkg/domain-errors"
)

// LoginRedirectURL is where an unauthenticated checkout attempt is sent. The
// redirect parameter brings the user back to pricing after signing in.
const LoginRedirectURL = "/login?redirect=pricing"

// Navigator moves the user agent to a new location. In the browser this is a
// location change; in tests a recorder.
type Navigator interface {
	Navigate(url string)
}

// SessionSource exposes the current authentication session. The session
// reconciler satisfies this, so checkout reads the same reconciled state
// the rest of the app sees.
type SessionSource interface {
	GetSession(ctx context.Context) (*identity.Session, error)
}

// Initiator drives plan selection to its destination: a sales enquiry for
// contact-only tiers, the login page for signed-out users, or the hosted
// checkout page for everyone else.
type Initiator struct {
	sessions SessionSource
	nav      Navigator
	endpoint string
	token    string
	origin   string
	http     *http.Client
	logger   *slog.Logger
}

type InitiatorOption func(*Initiator)

func WithInitiatorHTTPClient(c *http.Client) InitiatorOption {
	return func(i *Initiator) {
		i.http = c
	}
}

func WithInitiatorLogger(logger *slog.Logger) InitiatorOption {
	return func(i *Initiator) {
		i.logger = logger
	}
}

// WithOrigin sets the site origin used to build success and cancel redirect
// URLs. Leave empty to let the endpoint apply its own defaults.
func WithOrigin(origin string) InitiatorOption {
	return func(i *Initiator) {
		i.origin = origin
	}
}

// NewInitiator creates an Initiator that posts to the given checkout endpoint
// with the given bearer token.
func NewInitiator(sessions SessionSource, nav Navigator, endpoint, token string, opts ...InitiatorOption) *Initiator {
	i := &Initiator{
		sessions: sessions,
		nav:      nav,
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Checkout starts the purchase flow for a plan. Navigation outcomes are not
// errors: only a failed call to the checkout endpoint returns one.
func (i *Initiator) Checkout(ctx context.Context, plan Plan, interval Interval) error {
	if !plan.SelfServe() {
		i.nav.Navigate(ContactURL)
		return nil
	}

	session, err := i.sessions.GetSession(ctx)
	if err != nil {
		i.logger.WarnContext(ctx, "session lookup failed before checkout", "error", err)
	}
	if session == nil {
		i.nav.Navigate(LoginRedirectURL)
		return nil
	}

	body := CheckoutRequest{PriceID: plan.PriceFor(interval)}
	if session.User != nil {
		body.CustomerEmail = session.User.Email
	}
	if i.origin != "" {
		body.SuccessURL = i.origin + "/dashboard?checkout=success"
		body.CancelURL = i.origin + "/pricing?checkout=cancelled"
	}

	result, err := i.createSession(ctx, body)
	if err != nil {
		i.logger.ErrorContext(ctx, "checkout initiation failed",
			"error", err,
			"plan", plan.Name,
			"interval", string(interval),
		)
		return err
	}

	i.nav.Navigate(result.URL)
	return nil
}

func (i *Initiator) createSession(ctx context.Context, body CheckoutRequest) (*CheckoutResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode checkout request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build checkout request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+i.token)

	resp, err := i.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "checkout endpoint unreachable")
	}
	defer resp.Body.Close()

	var parsed struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "invalid checkout response")
	}

	// The endpoint signals failure through the error field, mirror that
	// instead of trusting the status code alone.
	if parsed.URL == "" {
		msg := parsed.Error
		if msg == "" {
			msg = "checkout session missing redirect url"
		}
		return nil, dErrors.New(dErrors.CodeUpstream, msg)
	}

	return &CheckoutResult{URL: parsed.URL, SessionID: parsed.SessionID}, nil
}
