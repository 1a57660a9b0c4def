// Package identity is a client for a GoTrue-compatible identity provider.
// Besides the REST calls it mirrors the provider SDK's behavior of being the
// event source for auth state changes: successful sign-ins, sign-outs, and
// token refreshes issued through this client are announced to subscribers.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "movido/pkg/domain-errors"
)

const authPath = "/auth/v1"

// Client talks to the identity provider REST API and maintains the locally
// persisted session. Construct one per process and inject it; there is no
// package-level singleton.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	storage Storage
	logger  *slog.Logger

	mu        sync.Mutex
	current   *Session
	listeners map[int]func(Event, *Session)
	nextID    int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Client) {
		c.storage = storage
	}
}

// NewClient constructs a provider client. Session restore from storage runs
// asynchronously; GetSession may report no session until the restore lands,
// which callers tolerate with a short settling delay.
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		listeners: make(map[int]func(Event, *Session)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.storage == nil {
		c.storage = NewMemoryStorage()
	}

	go c.restore()

	return c
}

// restore warms the in-memory session from storage. Expired sessions are
// discarded rather than surfaced.
func (c *Client) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := c.storage.Load(ctx)
	if err != nil {
		c.logger.Warn("session restore failed", "error", err)
		return
	}
	if session == nil || session.AccessToken == "" {
		return
	}

	c.hydrate(session)
	if session.Expired(time.Now()) {
		_ = c.storage.Clear(ctx)
		return
	}

	c.mu.Lock()
	if c.current == nil {
		c.current = session
	}
	c.mu.Unlock()
}

// GetSession returns a point-in-time snapshot of the current session, or nil
// when no session is held locally.
func (c *Client) GetSession(_ context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Expired(time.Now()) {
		return nil, nil
	}
	return cloneSession(c.current), nil
}

// OnAuthStateChange registers a listener for auth events. The returned
// function unsubscribes it; callers must invoke it on teardown.
func (c *Client) OnAuthStateChange(fn func(Event, *Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignInWithPassword exchanges email/password credentials for a session.
// On success the session is persisted and SIGNED_IN is emitted; callers should
// rely on the event rather than the return value for state updates.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token", query, body, &session, ""); err != nil {
		return nil, err
	}

	c.adopt(ctx, &session)
	c.emit(EventSignedIn, &session)
	return cloneSession(&session), nil
}

// SignUp registers a new account. When the provider requires email
// confirmation it returns no session; the caller shows the confirmation
// screen and no event is emitted until the user signs in.
func (c *Client) SignUp(ctx context.Context, email, password string, data map[string]any) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/signup", nil, body, &session, ""); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, nil
	}

	c.adopt(ctx, &session)
	c.emit(EventSignedIn, &session)
	return cloneSession(&session), nil
}

// SignOut revokes the current session with the provider. Local state is only
// cleared (and SIGNED_OUT emitted) when the provider accepts the revocation.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	token := ""
	if current != nil {
		token = current.AccessToken
	}

	if err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil, token); err != nil {
		return err
	}

	if err := c.storage.Clear(ctx); err != nil {
		c.logger.Warn("session storage clear failed", "error", err)
	}
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.emit(EventSignedOut, nil)
	return nil
}

// RefreshSession exchanges the refresh token for a new session and emits
// TOKEN_REFRESHED. The provider owns refresh semantics; this is a single
// delegated exchange, not a refresh scheduler.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil || current.RefreshToken == "" {
		return nil, dErrors.New(dErrors.CodeAuthFailed, "no session to refresh")
	}

	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": current.RefreshToken}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token", query, body, &session, ""); err != nil {
		return nil, err
	}

	c.adopt(ctx, &session)
	c.emit(EventTokenRefreshed, &session)
	return cloneSession(&session), nil
}

// ResetPasswordForEmail asks the provider to send a password recovery link.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/recover", query, body, nil, "")
}

// adopt hydrates, persists, and installs a freshly issued session.
func (c *Client) adopt(ctx context.Context, session *Session) {
	c.hydrate(session)
	if err := c.storage.Save(ctx, cloneSession(session)); err != nil {
		c.logger.Warn("session persist failed", "error", err)
	}
	c.mu.Lock()
	c.current = cloneSession(session)
	c.mu.Unlock()
}

// hydrate fills expiry and identity fields from the access token claims when
// the provider response omitted them (restored sessions in particular). The
// parse is unverified: signature trust stays with the provider.
func (c *Client) hydrate(session *Session) {
	if session == nil || session.AccessToken == "" {
		return
	}
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Unix() + session.ExpiresIn
	}
	if session.ExpiresAt != 0 && session.User != nil {
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(session.AccessToken, claims); err != nil {
		c.logger.Warn("access token parse failed", "error", err)
		return
	}

	if session.ExpiresAt == 0 {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			session.ExpiresAt = exp.Unix()
		}
	}
	if session.User == nil {
		user := &User{}
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			if id, parseErr := uuid.Parse(sub); parseErr == nil {
				user.ID = id
			}
		}
		if email, ok := claims["email"].(string); ok {
			user.Email = email
		}
		session.User = user
	}
}

// emit delivers an event to all registered listeners. Delivery is synchronous
// so arrival order matches call order; listeners must not block.
func (c *Client) emit(event Event, session *Session) {
	c.mu.Lock()
	fns := make([]func(Event, *Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, cloneSession(session))
	}
}

// providerError is the error envelope the provider uses, in its historical
// variants.
type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e providerError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	}
	return "authentication failed"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, bearer string) error {
	endpoint := c.baseURL + authPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuthFailed, "identity provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var pErr providerError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, &pErr)
		return dErrors.New(dErrors.CodeAuthFailed, pErr.text())
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("decode %s response", path))
	}
	return nil
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.User != nil {
		u := *s.User
		cp.User = &u
	}
	return &cp
}
