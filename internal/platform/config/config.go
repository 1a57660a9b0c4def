package config

import (
	"os"
	"time"
)

// Defaults for the reconciliation timing knobs. The settle delay papers over
// the provider's asynchronous session storage warm-up; the safety timeout
// guarantees the UI never hangs on a stalled provider.
var (
	SettleDelay    = 500 * time.Millisecond
	SafetyTimeout  = 6 * time.Second
	ProfileTimeout = 5 * time.Second
)

// Server captures process level configuration read from the environment.
type Server struct {
	Addr        string
	Environment string

	// Identity provider (GoTrue-compatible REST API).
	ProviderURL string
	AnonKey     string

	// Payment provider. Empty means checkout fails closed with a
	// configuration error, not a request error.
	StripeSecretKey string
	SuccessURL      string
	CancelURL       string

	// Optional Postgres profile store. Empty falls back to in-memory.
	DatabaseURL string

	SettleDelay    time.Duration
	SafetyTimeout  time.Duration
	ProfileTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MOVIDO_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	env := os.Getenv("MOVIDO_ENV")
	if env == "" {
		env = "development"
	}

	successURL := os.Getenv("CHECKOUT_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://www.movidologistics.uk/dashboard?checkout=success"
	}
	cancelURL := os.Getenv("CHECKOUT_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "https://www.movidologistics.uk/pricing?checkout=cancelled"
	}

	settle := durationFromEnv("AUTH_SETTLE_DELAY", SettleDelay)
	safety := durationFromEnv("AUTH_SAFETY_TIMEOUT", SafetyTimeout)
	profile := durationFromEnv("PROFILE_FETCH_TIMEOUT", ProfileTimeout)

	return Server{
		Addr:            addr,
		Environment:     env,
		ProviderURL:     os.Getenv("SUPABASE_URL"),
		AnonKey:         os.Getenv("SUPABASE_ANON_KEY"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		SuccessURL:      successURL,
		CancelURL:       cancelURL,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SettleDelay:     settle,
		SafetyTimeout:   safety,
		ProfileTimeout:  profile,
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
