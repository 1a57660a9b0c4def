package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	billingHandler "movido/internal/billing/handler"
	"movido/internal/platform/health"
	"movido/internal/platform/middleware"
)

// NewRouter wires all public endpoints with middleware.
// CORS sits ahead of the JSON content type so browser preflights get the
// plain "ok" body the web client expects.
func NewRouter(billing *billingHandler.Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	billing.Register(r)
	healthHandler.Register(r)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
