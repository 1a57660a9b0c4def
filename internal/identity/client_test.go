package identity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "movido/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects emitted events in arrival order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) callback(event Event, _ *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func signedToken(t *testing.T, userID uuid.UUID, email string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestSignInWithPassword(t *testing.T) {
	userID := uuid.New()

	t.Run("success emits SIGNED_IN and persists the session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "anon-key", r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "dispatcher@movido.co.uk", body["email"])

			json.NewEncoder(w).Encode(Session{
				AccessToken:  "token-abc",
				RefreshToken: "refresh-abc",
				TokenType:    "bearer",
				ExpiresIn:    3600,
				User:         &User{ID: userID, Email: "dispatcher@movido.co.uk"},
			})
		}))
		defer srv.Close()

		storage := NewMemoryStorage()
		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()), WithStorage(storage))
		rec := &recorder{}
		unsubscribe := client.OnAuthStateChange(rec.callback)
		defer unsubscribe()

		session, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "secret")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "token-abc", session.AccessToken)
		assert.Equal(t, userID, session.User.ID)
		assert.NotZero(t, session.ExpiresAt)

		assert.Equal(t, []Event{EventSignedIn}, rec.all())

		persisted, err := storage.Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, persisted)
		assert.Equal(t, "token-abc", persisted.AccessToken)

		snapshot, err := client.GetSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, userID, snapshot.User.ID)
	})

	t.Run("provider rejection surfaces the provider message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error_description": "Invalid login credentials",
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
		rec := &recorder{}
		defer client.OnAuthStateChange(rec.callback)()

		session, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "wrong")
		assert.Nil(t, session)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthFailed))
		assert.Equal(t, "Invalid login credentials", dErrors.Message(err))
		assert.Empty(t, rec.all())
	})
}

func TestSignUp(t *testing.T) {
	t.Run("confirmation required returns no session and no event", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			meta, ok := body["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "Sam Carter", meta["name"])

			// user-only response: email confirmation pending
			json.NewEncoder(w).Encode(map[string]string{
				"id":    uuid.NewString(),
				"email": "sam@movido.co.uk",
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
		rec := &recorder{}
		defer client.OnAuthStateChange(rec.callback)()

		session, err := client.SignUp(context.Background(), "sam@movido.co.uk", "secret", map[string]any{"name": "Sam Carter"})
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Empty(t, rec.all())
	})

	t.Run("autoconfirmed signup emits SIGNED_IN", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Session{
				AccessToken: "token-new",
				ExpiresIn:   3600,
				User:        &User{ID: uuid.New(), Email: "sam@movido.co.uk"},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
		rec := &recorder{}
		defer client.OnAuthStateChange(rec.callback)()

		session, err := client.SignUp(context.Background(), "sam@movido.co.uk", "secret", nil)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, []Event{EventSignedIn}, rec.all())
	})
}

func TestSignOut(t *testing.T) {
	t.Run("success clears local session and emits SIGNED_OUT", func(t *testing.T) {
		var sawLogout bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/v1/token":
				json.NewEncoder(w).Encode(Session{
					AccessToken: "token-abc",
					ExpiresIn:   3600,
					User:        &User{ID: uuid.New(), Email: "dispatcher@movido.co.uk"},
				})
			case "/auth/v1/logout":
				sawLogout = true
				assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusNoContent)
			}
		}))
		defer srv.Close()

		storage := NewMemoryStorage()
		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()), WithStorage(storage))
		rec := &recorder{}
		defer client.OnAuthStateChange(rec.callback)()

		_, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "secret")
		require.NoError(t, err)

		require.NoError(t, client.SignOut(context.Background()))
		assert.True(t, sawLogout)
		assert.Equal(t, []Event{EventSignedIn, EventSignedOut}, rec.all())

		persisted, err := storage.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, persisted)

		snapshot, err := client.GetSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("provider failure keeps local session and emits nothing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/v1/token" {
				json.NewEncoder(w).Encode(Session{
					AccessToken: "token-abc",
					ExpiresIn:   3600,
					User:        &User{ID: uuid.New(), Email: "dispatcher@movido.co.uk"},
				})
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"msg": "logout failed"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
		rec := &recorder{}
		defer client.OnAuthStateChange(rec.callback)()

		_, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "secret")
		require.NoError(t, err)

		err = client.SignOut(context.Background())
		require.Error(t, err)
		assert.Equal(t, "logout failed", dErrors.Message(err))
		assert.Equal(t, []Event{EventSignedIn}, rec.all())

		snapshot, getErr := client.GetSession(context.Background())
		require.NoError(t, getErr)
		assert.NotNil(t, snapshot)
	})
}

func TestRefreshSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grant := r.URL.Query().Get("grant_type")
		if grant == "refresh_token" {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-abc", body["refresh_token"])
		}
		json.NewEncoder(w).Encode(Session{
			AccessToken:  "token-" + grant,
			RefreshToken: "refresh-abc",
			ExpiresIn:    3600,
			User:         &User{ID: uuid.New(), Email: "dispatcher@movido.co.uk"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
	rec := &recorder{}
	defer client.OnAuthStateChange(rec.callback)()

	_, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "secret")
	require.NoError(t, err)

	refreshed, err := client.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-refresh_token", refreshed.AccessToken)
	assert.Equal(t, []Event{EventSignedIn, EventTokenRefreshed}, rec.all())
}

func TestSessionRestore(t *testing.T) {
	t.Run("persisted session is hydrated from its access token", func(t *testing.T) {
		userID := uuid.New()
		storage := NewMemoryStorage()
		require.NoError(t, storage.Save(context.Background(), &Session{
			AccessToken: signedToken(t, userID, "dispatcher@movido.co.uk", time.Now().Add(time.Hour)),
		}))

		client := NewClient("http://localhost:9999", "anon-key", WithLogger(testLogger()), WithStorage(storage))

		require.Eventually(t, func() bool {
			session, _ := client.GetSession(context.Background())
			return session != nil
		}, 2*time.Second, 10*time.Millisecond)

		session, err := client.GetSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, session.User)
		assert.Equal(t, userID, session.User.ID)
		assert.Equal(t, "dispatcher@movido.co.uk", session.User.Email)
		assert.NotZero(t, session.ExpiresAt)
	})

	t.Run("expired persisted session is discarded", func(t *testing.T) {
		storage := NewMemoryStorage()
		require.NoError(t, storage.Save(context.Background(), &Session{
			AccessToken: signedToken(t, uuid.New(), "dispatcher@movido.co.uk", time.Now().Add(-time.Hour)),
		}))

		client := NewClient("http://localhost:9999", "anon-key", WithLogger(testLogger()), WithStorage(storage))

		require.Eventually(t, func() bool {
			persisted, _ := storage.Load(context.Background())
			return persisted == nil
		}, 2*time.Second, 10*time.Millisecond)

		session, err := client.GetSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestOnAuthStateChangeUnsubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{
			AccessToken: "token-abc",
			ExpiresIn:   3600,
			User:        &User{ID: uuid.New(), Email: "dispatcher@movido.co.uk"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", WithLogger(testLogger()))
	rec := &recorder{}
	unsubscribe := client.OnAuthStateChange(rec.callback)
	unsubscribe()

	_, err := client.SignInWithPassword(context.Background(), "dispatcher@movido.co.uk", "secret")
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}
