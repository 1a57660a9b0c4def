package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultPort      = "9999"
	defaultAPIKey    = "local-anon-key"
	defaultLatencyMs = "50"
)

// TokenResponse mirrors the GoTrue session envelope.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"error_description,omitempty"`
	Msg              string `json:"msg,omitempty"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

// testAccounts contains predefined credentials so local flows are scriptable.
// "pending@" forces the email-confirmation-required sign-up path.
var testAccounts = map[string]string{
	"alice@carterlogistics.co.uk": "fleet-password",
	"bob@midlandshaulage.co.uk":   "fleet-password",
	"dispatcher@movido.co.uk":     "dispatch123",
}

var (
	mu       sync.Mutex
	sessions = map[string]string{} // refresh token -> email
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/auth/v1/token", handleToken)
	http.HandleFunc("/auth/v1/signup", handleSignup)
	http.HandleFunc("/auth/v1/logout", handleLogout)
	http.HandleFunc("/auth/v1/recover", handleRecover)
	http.HandleFunc("/health", handleHealth)

	log.Printf("🔐 Mock Identity Provider starting on port %s", port)
	log.Printf("📝 Anon key: %s", apiKey)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "identity-provider",
		"version": "1.0.0",
	})
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}

	switch r.URL.Query().Get("grant_type") {
	case "password":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mu.Lock()
		expected, known := testAccounts[body.Email]
		mu.Unlock()
		if !known || expected != body.Password {
			writeError(w, http.StatusBadRequest, "Invalid login credentials")
			return
		}
		writeSession(w, body.Email)
	case "refresh_token":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mu.Lock()
		email, ok := sessions[body.RefreshToken]
		delete(sessions, body.RefreshToken)
		mu.Unlock()
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid Refresh Token")
			return
		}
		writeSession(w, email)
	default:
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
	}
}

func handleSignup(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}

	var body struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || len(body.Password) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "Password should be at least 6 characters")
		return
	}

	// Addresses starting with "pending" exercise the confirmation-required
	// path: an account is made but no session is issued.
	if len(body.Email) >= 7 && body.Email[:7] == "pending" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    newID(),
			"email": body.Email,
		})
		return
	}

	mu.Lock()
	testAccounts[body.Email] = body.Password
	mu.Unlock()
	writeSession(w, body.Email)
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleRecover(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}
	log.Printf("📧 password recovery requested for %s (redirect_to=%s)",
		body.Email, r.URL.Query().Get("redirect_to"))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{})
}

func writeSession(w http.ResponseWriter, email string) {
	now := time.Now()
	expiresIn := int64(3600)
	userID := newID()
	refresh := newID()

	mu.Lock()
	sessions[refresh] = email
	mu.Unlock()

	resp := TokenResponse{
		AccessToken:  makeJWT(userID, email, now.Unix()+expiresIn),
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
		ExpiresAt:    now.Unix() + expiresIn,
		RefreshToken: refresh,
		User:         &User{ID: userID, Email: email},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// makeJWT builds an unsigned-but-parseable JWT so clients that read claims
// (sub, email, exp) without verifying get sensible values.
func makeJWT(sub, email string, exp int64) string {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	claims := map[string]any{
		"sub":   sub,
		"email": email,
		"exp":   exp,
		"aud":   "authenticated",
		"role":  "authenticated",
	}
	h, _ := json.Marshal(header)
	c, _ := json.Marshal(claims)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(h) + "." + enc.EncodeToString(c) + "." + enc.EncodeToString([]byte("mock"))
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("apikey") != apiKey {
		writeError(w, http.StatusUnauthorized, "No API key found in request")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Msg: msg})
}

func simulateLatency() {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
}

// newID returns a random UUIDv4-shaped identifier without external deps.
func newID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
