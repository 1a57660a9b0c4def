package billing

// CheckoutRequest is the body of POST /create-checkout-session. Field names
// follow the browser client's camelCase wire format. Only the price id is
// validated locally; malformed redirect URLs and emails are Stripe's call.
type CheckoutRequest struct {
	PriceID       string `json:"priceId" validate:"required"`
	SuccessURL    string `json:"successUrl,omitempty"`
	CancelURL     string `json:"cancelUrl,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// CheckoutResult carries the hosted checkout page URL back to the client,
// which redirects the browser there.
type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// SessionParams is the provider-agnostic shape of a checkout session request
// after defaults have been applied.
type SessionParams struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	TrialDays     int64
}
