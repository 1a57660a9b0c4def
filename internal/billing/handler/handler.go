package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"movido/internal/billing"
	"movido/internal/platform/metrics"
	"movido/internal/platform/middleware"
	jsonResponse "movido/internal/transport/http/json"
	"movido/internal/transport/http/shared"
	dErrors "movido/pkg/domain-errors"
	s "movido/pkg/string"
)

// Service defines the interface for billing operations.
type Service interface {
	CreateCheckoutSession(ctx context.Context, req *billing.CheckoutRequest) (*billing.CheckoutResult, error)
}

// Handler handles billing endpoints for plan discovery and checkout.
type Handler struct {
	billing Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a billing Handler with the given service and logger.
func New(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		billing: service,
		logger:  logger,
		metrics: m,
	}
}

// Register registers the billing routes with the chi router.
// The route path matches what the web client calls.
func (h *Handler) Register(r chi.Router) {
	r.Post("/create-checkout-session", h.HandleCreateCheckoutSession)
	r.Get("/billing/plans", h.HandleListPlans)
}

// HandleCreateCheckoutSession implements POST /create-checkout-session.
// Starts a subscription checkout for the requested price and returns the
// hosted payment page URL for the client to redirect to.
//
// Input: { "priceId": "price_...", "successUrl": "...", "cancelUrl": "...", "customerEmail": "..." }
// Output: { "url": "https://checkout.stripe.com/...", "sessionId": "cs_..." }
func (h *Handler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	var req billing.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode checkout request",
			"error", err,
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.PriceID, &req.SuccessURL, &req.CancelURL, &req.CustomerEmail)

	res, err := h.billing.CreateCheckoutSession(ctx, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "checkout session rejected",
			"error", err,
			"request_id", requestID,
			"price_id", req.PriceID,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "checkout session created",
		"request_id", requestID,
		"session_id", res.SessionID,
	)
	if h.metrics != nil {
		h.metrics.ObserveEndpointLatency("create-checkout-session", time.Since(start).Seconds())
	}

	jsonResponse.WriteJSON(w, http.StatusOK, res)
}

// HandleListPlans implements GET /billing/plans.
// Returns the subscription catalog the pricing page renders.
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"plans":   billing.Plans(),
		"contact": billing.ContactURL,
	})
}
