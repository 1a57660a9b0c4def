package billing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movido/internal/auth"
	"movido/internal/identity"
	dErrors "movido/pkg/domain-errors"
)

// The reconciler is the production session source for checkout.
var _ SessionSource = (*auth.Reconciler)(nil)

type recordingNavigator struct {
	destinations []string
}

func (n *recordingNavigator) Navigate(url string) {
	n.destinations = append(n.destinations, url)
}

type staticSessions struct {
	session *identity.Session
	err     error
}

func (s *staticSessions) GetSession(context.Context) (*identity.Session, error) {
	return s.session, s.err
}

func activeSession(email string) *identity.Session {
	return &identity.Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        &identity.User{ID: uuid.New(), Email: email},
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitiatorCheckout(t *testing.T) {
	professional, _ := PlanByName("Professional")
	enterprise, _ := PlanByName("Enterprise")

	t.Run("enterprise goes to the sales enquiry address", func(t *testing.T) {
		nav := &recordingNavigator{}
		i := NewInitiator(&staticSessions{}, nav, "http://unused", "anon", WithInitiatorLogger(quiet()))

		require.NoError(t, i.Checkout(context.Background(), enterprise, IntervalMonthly))
		require.Len(t, nav.destinations, 1)
		assert.Equal(t, ContactURL, nav.destinations[0])
	})

	t.Run("signed-out users are sent to login with a return hint", func(t *testing.T) {
		nav := &recordingNavigator{}
		i := NewInitiator(&staticSessions{}, nav, "http://unused", "anon", WithInitiatorLogger(quiet()))

		require.NoError(t, i.Checkout(context.Background(), professional, IntervalMonthly))
		require.Len(t, nav.destinations, 1)
		assert.Equal(t, LoginRedirectURL, nav.destinations[0])
	})

	t.Run("session lookup errors degrade to the login redirect", func(t *testing.T) {
		nav := &recordingNavigator{}
		sessions := &staticSessions{err: dErrors.New(dErrors.CodeTimeout, "storage not ready")}
		i := NewInitiator(sessions, nav, "http://unused", "anon", WithInitiatorLogger(quiet()))

		require.NoError(t, i.Checkout(context.Background(), professional, IntervalMonthly))
		require.Len(t, nav.destinations, 1)
		assert.Equal(t, LoginRedirectURL, nav.destinations[0])
	})

	t.Run("signed-in checkout posts the priced request and follows the url", func(t *testing.T) {
		var got CheckoutRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]string{
				"url":       "https://checkout.stripe.com/c/pay/cs_test_42",
				"sessionId": "cs_test_42",
			})
		}))
		defer srv.Close()

		nav := &recordingNavigator{}
		sessions := &staticSessions{session: activeSession("dispatcher@movido.co.uk")}
		i := NewInitiator(sessions, nav, srv.URL, "anon-key",
			WithInitiatorLogger(quiet()),
			WithOrigin("https://www.movidologistics.uk"),
			WithInitiatorHTTPClient(srv.Client()),
		)

		require.NoError(t, i.Checkout(context.Background(), professional, IntervalAnnual))

		assert.Equal(t, "Bearer anon-key", auth)
		assert.Equal(t, "price_1T4QFP0gB9FXYr87xoe5Q76D", got.PriceID)
		assert.Equal(t, "dispatcher@movido.co.uk", got.CustomerEmail)
		assert.Equal(t, "https://www.movidologistics.uk/dashboard?checkout=success", got.SuccessURL)
		assert.Equal(t, "https://www.movidologistics.uk/pricing?checkout=cancelled", got.CancelURL)

		require.Len(t, nav.destinations, 1)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_42", nav.destinations[0])
	})

	t.Run("endpoint error body becomes an upstream error and no navigation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Stripe secret key not configured"})
		}))
		defer srv.Close()

		nav := &recordingNavigator{}
		sessions := &staticSessions{session: activeSession("dispatcher@movido.co.uk")}
		i := NewInitiator(sessions, nav, srv.URL, "anon-key",
			WithInitiatorLogger(quiet()),
			WithInitiatorHTTPClient(srv.Client()),
		)

		err := i.Checkout(context.Background(), professional, IntervalMonthly)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))
		assert.Equal(t, "Stripe secret key not configured", dErrors.Message(err))
		assert.Empty(t, nav.destinations)
	})

	t.Run("unreachable endpoint surfaces a transport error", func(t *testing.T) {
		nav := &recordingNavigator{}
		sessions := &staticSessions{session: activeSession("dispatcher@movido.co.uk")}
		i := NewInitiator(sessions, nav, "http://127.0.0.1:1", "anon-key",
			WithInitiatorLogger(quiet()),
			WithInitiatorHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}),
		)

		err := i.Checkout(context.Background(), professional, IntervalMonthly)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))
		assert.Empty(t, nav.destinations)
	})
}
