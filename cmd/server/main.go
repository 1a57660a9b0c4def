package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"movido/internal/auth"
	"movido/internal/billing"
	billingHandler "movido/internal/billing/handler"
	billingTracer "movido/internal/billing/tracer"
	"movido/internal/identity"
	"movido/internal/platform/config"
	"movido/internal/platform/database"
	"movido/internal/platform/health"
	"movido/internal/platform/logger"
	"movido/internal/platform/metrics"
	"movido/internal/profile"
	"movido/internal/seeder"
	httptransport "movido/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	log.Info("initializing movido",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	healthHandler := health.New(cfg.Environment)

	// Profile storage: Postgres when configured, in-memory otherwise.
	var profileStore profile.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			log.Error("failed to open database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		profileStore = profile.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory profile store")
		memStore := profile.NewInMemoryStore()
		if cfg.Environment == "development" {
			if err := seeder.New(memStore, log).SeedAll(context.Background()); err != nil {
				log.Error("failed to seed demo data", "error", err)
				os.Exit(1)
			}
		}
		profileStore = memStore
	}

	// Shield the auth flow from transient database failures.
	profileStore = profile.NewResilientStore(profileStore, profile.WithResilientLogger(log))

	fetcher := profile.NewFetcher(profileStore,
		profile.WithLogger(log),
		profile.WithMetrics(m),
		profile.WithTimeout(cfg.ProfileTimeout),
	)

	provider := identity.NewClient(cfg.ProviderURL, cfg.AnonKey, identity.WithLogger(log))

	reconciler := auth.New(provider, fetcher,
		auth.WithLogger(log),
		auth.WithMetrics(m),
		auth.WithConfig(auth.Config{
			SettleDelay:   cfg.SettleDelay,
			SafetyTimeout: cfg.SafetyTimeout,
		}),
	)
	reconciler.Start(context.Background())
	defer reconciler.Close()

	// Without a Stripe key the billing service stays up but refuses checkout.
	var creator billing.SessionCreator
	if cfg.StripeSecretKey != "" {
		creator = billing.NewStripeCreator(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout disabled")
	}
	billingService := billing.New(creator,
		billing.WithLogger(log),
		billing.WithMetrics(m),
		billing.WithTracer(billingTracer.NewOTel()),
		billing.WithRedirectURLs(cfg.SuccessURL, cfg.CancelURL),
	)

	router := httptransport.NewRouter(
		billingHandler.New(billingService, log, m),
		healthHandler,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
