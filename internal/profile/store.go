package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store lookups when no profile exists for the id.
var ErrNotFound = errors.New("profile not found")

// Store defines the persistence interface for profile data.
// Error Contract: FindByID and Update return ErrNotFound when the profile
// doesn't exist; other errors are infrastructure failures.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Update applies a partial change set and returns the canonical record.
	Update(ctx context.Context, id uuid.UUID, changes Changes) (*Profile, error)
}
