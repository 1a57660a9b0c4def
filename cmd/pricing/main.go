package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"movido/internal/auth"
	"movido/internal/billing"
	"movido/internal/identity"
	"movido/internal/platform/config"
	"movido/internal/platform/logger"
	"movido/internal/profile"
)

// printNavigator prints where the browser would be sent instead of going there.
type printNavigator struct{}

func (printNavigator) Navigate(url string) {
	fmt.Printf("navigate: %s\n", url)
}

// main drives a checkout from the command line against a running server.
// Useful for poking at the flow without the web client.
func main() {
	planName := flag.String("plan", "Professional", "plan to buy (Starter, Professional, Enterprise)")
	interval := flag.String("interval", "monthly", "billing interval (monthly, annual)")
	endpoint := flag.String("endpoint", "http://localhost:8080/create-checkout-session", "checkout endpoint")
	email := flag.String("email", "", "sign in with this email before checkout")
	password := flag.String("password", "", "password for -email")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()

	plan, ok := billing.PlanByName(*planName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown plan %q\n", *planName)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := identity.NewClient(cfg.ProviderURL, cfg.AnonKey, identity.WithLogger(log))
	fetcher := profile.NewFetcher(profile.NewInMemoryStore(), profile.WithLogger(log))

	reconciler := auth.New(provider, fetcher, auth.WithLogger(log))
	reconciler.Start(ctx)
	defer reconciler.Close()

	if *email != "" {
		if err := reconciler.SignIn(ctx, *email, *password); err != nil {
			fmt.Fprintf(os.Stderr, "sign-in failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("signed in as %s\n", *email)
	}
	waitFor(ctx, func() bool {
		st := reconciler.State()
		return !st.IsLoading && (*email == "" || st.IsAuthenticated)
	})

	initiator := billing.NewInitiator(reconciler, printNavigator{}, *endpoint, cfg.AnonKey,
		billing.WithInitiatorLogger(log),
	)

	if err := initiator.Checkout(ctx, plan, billing.Interval(*interval)); err != nil {
		fmt.Fprintf(os.Stderr, "checkout failed: %v\n", err)
		os.Exit(1)
	}
}

// waitFor polls until the reconciler state satisfies the condition, so the
// checkout reads a settled session instead of a loading placeholder.
func waitFor(ctx context.Context, done func() bool) {
	for !done() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

