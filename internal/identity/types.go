package identity

import (
	"time"

	"github.com/google/uuid"
)

// Event is an auth state change notification kind, matching the names the
// provider uses on its event stream.
type Event string

const (
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// User is the identity record issued by the provider. It is opaque to the
// application beyond the id and email; application data lives in the profile
// store keyed by ID.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is a provider-issued session: an access token plus refresh material
// and expiry metadata. The access token is a JWT signed by the provider; this
// client trusts the provider for verification.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expired reports whether the session's access token has passed its expiry.
// Sessions without expiry metadata are treated as live; the provider rejects
// them on first use if they are not.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt
}
