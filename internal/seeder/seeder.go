package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"movido/internal/profile"
)

// ProfileStore defines methods for seeding profiles
type ProfileStore interface {
	Save(ctx context.Context, p *profile.Profile) error
}

// Seeder populates in-memory stores with demo data
type Seeder struct {
	profiles ProfileStore
	logger   *slog.Logger
}

// New creates a new seeder
func New(profiles ProfileStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		profiles: profiles,
		logger:   logger,
	}
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	count, err := s.seedProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"profiles", count,
	)

	return nil
}

func (s *Seeder) seedProfiles(ctx context.Context) (int, error) {
	now := time.Now()

	demoProfiles := []struct {
		email   string
		name    string
		company string
		phone   string
		plan    string
	}{
		{"alice@carterlogistics.co.uk", "Alice Carter", "Carter Logistics Ltd", "+44 7700 900101", "Professional"},
		{"bob@midlandshaulage.co.uk", "Bob Brennan", "Midlands Haulage", "+44 7700 900102", "Starter"},
		{"charlie@northfreight.co.uk", "Charlie Chen", "North Freight Solutions", "+44 7700 900103", "Professional"},
		{"diana@expressparcels.co.uk", "Diana Davies", "Express Parcels UK", "+44 7700 900104", "Starter"},
		{"eve@evanstransport.co.uk", "Eve Evans", "Evans Transport", "", ""},
	}

	for _, p := range demoProfiles {
		record := &profile.Profile{
			ID:        uuid.New(),
			Email:     p.email,
			Name:      p.name,
			Company:   p.company,
			Phone:     p.phone,
			Plan:      p.plan,
			CreatedAt: now.Add(-30 * 24 * time.Hour),
			UpdatedAt: now,
		}
		if err := s.profiles.Save(ctx, record); err != nil {
			return 0, err
		}
	}

	return len(demoProfiles), nil
}
