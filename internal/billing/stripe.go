package billing

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	dErrors "movido/pkg/domain-errors"
)

// StripeCreator creates hosted checkout sessions through the Stripe API.
type StripeCreator struct {
	api *client.API
}

// NewStripeCreator builds a creator bound to the given secret key.
func NewStripeCreator(secretKey string) *StripeCreator {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeCreator{api: api}
}

// Create starts a subscription-mode checkout session for a single seat of the
// given price.
func (c *StripeCreator) Create(ctx context.Context, params SessionParams) (*CheckoutResult, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(params.TrialDays),
		},
	}
	sessionParams.Context = ctx
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	session, err := c.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		// Stripe's own message is what the browser client shows, keep it.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			return nil, dErrors.Wrap(err, dErrors.CodeUpstream, stripeErr.Msg)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "payment provider unreachable")
	}

	return &CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

var _ SessionCreator = (*StripeCreator)(nil)
