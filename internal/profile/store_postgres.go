package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const findProfileQuery = `
SELECT id, email, name, company, phone, plan, created_at, updated_at
FROM profiles
WHERE id = $1`

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, findProfileQuery, id).Scan(
		&p.ID, &p.Email, &p.Name, &p.Company, &p.Phone, &p.Plan, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &p, nil
}

const updateProfileQuery = `
UPDATE profiles
SET name       = COALESCE($2, name),
    company    = COALESCE($3, company),
    phone      = COALESCE($4, phone),
    plan       = COALESCE($5, plan),
    updated_at = now()
WHERE id = $1
RETURNING id, email, name, company, phone, plan, created_at, updated_at`

// Update applies a partial change set and returns the canonical record as
// stored, matching the "update returning" contract the reconciler merges from.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, changes Changes) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, updateProfileQuery, id,
		changes.Name, changes.Company, changes.Phone, changes.Plan,
	).Scan(
		&p.ID, &p.Email, &p.Name, &p.Company, &p.Phone, &p.Plan, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}
