package billing

import (
	"context"
	"log/slog"
	"time"

	"movido/internal/billing/tracer"
	"movido/internal/platform/metrics"
	dErrors "movido/pkg/domain-errors"
	"movido/pkg/validation"
)

// Checkout sessions carry a free trial so fleets can evaluate before paying.
const trialPeriodDays = 14

// Default redirect targets when the client does not supply its own.
const (
	DefaultSuccessURL = "https://www.movidologistics.uk/dashboard?checkout=success"
	DefaultCancelURL  = "https://www.movidologistics.uk/pricing?checkout=cancelled"
)

// SessionCreator talks to the payment provider. Implementations must honour
// the context for cancellation.
type SessionCreator interface {
	Create(ctx context.Context, params SessionParams) (*CheckoutResult, error)
}

// Service turns checkout requests into hosted checkout sessions.
// A Service with a nil creator is considered unconfigured and rejects
// every request, matching a deployment without a Stripe secret key.
type Service struct {
	creator    SessionCreator
	successURL string
	cancelURL  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithRedirectURLs overrides the default success and cancel redirect targets.
func WithRedirectURLs(successURL, cancelURL string) Option {
	return func(s *Service) {
		if successURL != "" {
			s.successURL = successURL
		}
		if cancelURL != "" {
			s.cancelURL = cancelURL
		}
	}
}

// New creates a billing Service. Pass a nil creator when no Stripe key is
// configured; checkout then fails with a configuration error.
func New(creator SessionCreator, opts ...Option) *Service {
	s := &Service{
		creator:    creator,
		successURL: DefaultSuccessURL,
		cancelURL:  DefaultCancelURL,
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCheckoutSession validates the request, applies redirect defaults and
// asks the payment provider for a hosted checkout session.
func (s *Service) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := validation.Validate(req); err != nil {
		s.fail("validation")
		return nil, err
	}

	// Configuration is checked after validation so a bad request still gets
	// a 400 on an unconfigured deployment.
	if s.creator == nil {
		s.fail("configuration")
		return nil, dErrors.New(dErrors.CodeConfiguration, "Stripe secret key not configured")
	}

	params := SessionParams{
		PriceID:       req.PriceID,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		CustomerEmail: req.CustomerEmail,
		TrialDays:     trialPeriodDays,
	}
	if params.SuccessURL == "" {
		params.SuccessURL = s.successURL
	}
	if params.CancelURL == "" {
		params.CancelURL = s.cancelURL
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCheckoutCreate,
		tracer.String(tracer.AttrPriceID, params.PriceID),
		tracer.Bool(tracer.AttrHasEmail, params.CustomerEmail != ""),
		tracer.Int64(tracer.AttrTrial, params.TrialDays),
	)

	callCtx, callSpan := s.tracer.Start(ctx, tracer.SpanStripeCall)
	started := time.Now()
	result, err := s.creator.Create(callCtx, params)
	callSpan.SetAttributes(tracer.Duration("elapsed", time.Since(started)))
	callSpan.End(err)
	if err != nil {
		span.End(err)
		s.fail("upstream")
		s.logger.ErrorContext(ctx, "checkout session creation failed",
			"error", err,
			"price_id", params.PriceID,
		)
		return nil, err
	}
	span.AddEvent(tracer.EventSessionCreated, tracer.String("session_id", result.SessionID))
	span.End(nil)

	if s.metrics != nil {
		s.metrics.IncrementCheckoutSessionsCreated()
	}
	s.logger.InfoContext(ctx, "checkout session created",
		"session_id", result.SessionID,
		"price_id", params.PriceID,
	)
	return result, nil
}

func (s *Service) fail(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementCheckoutFailures(reason)
	}
}
