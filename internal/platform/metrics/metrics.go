package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SignIns          prometheus.Counter
	SignOuts         prometheus.Counter
	AuthFailures     prometheus.Counter
	SafetyTimerFires prometheus.Counter

	ProfileFetchFailures prometheus.Counter

	CheckoutSessionsCreated prometheus.Counter
	CheckoutFailures        *prometheus.CounterVec

	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SignIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_sign_ins_total",
			Help: "Total number of successful sign-ins observed on the auth event stream",
		}),
		SignOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_sign_outs_total",
			Help: "Total number of sign-outs observed on the auth event stream",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_auth_failures_total",
			Help: "Total number of identity provider rejections on sign-in/up/out",
		}),
		SafetyTimerFires: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_auth_safety_timer_fires_total",
			Help: "Times the loading safety timer fired before initialization finished",
		}),
		ProfileFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_profile_fetch_failures_total",
			Help: "Profile lookups that errored or timed out and degraded to no profile",
		}),
		CheckoutSessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "movido_checkout_sessions_created_total",
			Help: "Stripe checkout sessions created successfully",
		}),
		CheckoutFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "movido_checkout_failures_total",
			Help: "Checkout attempts that failed, labeled by reason",
		}, []string{"reason"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "movido_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// IncrementSignIns increments the sign-in counter by 1.
func (m *Metrics) IncrementSignIns() {
	m.SignIns.Inc()
}

func (m *Metrics) IncrementSignOuts() {
	m.SignOuts.Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementSafetyTimerFires() {
	m.SafetyTimerFires.Inc()
}

func (m *Metrics) IncrementProfileFetchFailures() {
	m.ProfileFetchFailures.Inc()
}

func (m *Metrics) IncrementCheckoutSessionsCreated() {
	m.CheckoutSessionsCreated.Inc()
}

// IncrementCheckoutFailures increments the checkout failures counter with a reason label.
func (m *Metrics) IncrementCheckoutFailures(reason string) {
	m.CheckoutFailures.WithLabelValues(reason).Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
