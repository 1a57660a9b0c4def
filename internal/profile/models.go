package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the application-side user record, keyed by the identity
// provider's user id. It is distinct from the provider's session record and
// may be absent even for an authenticated identity.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Changes is a partial profile update. Nil fields are left unchanged.
type Changes struct {
	Name    *string
	Company *string
	Phone   *string
	Plan    *string
}

// Empty reports whether the change set would touch nothing.
func (c Changes) Empty() bool {
	return c.Name == nil && c.Company == nil && c.Phone == nil && c.Plan == nil
}
