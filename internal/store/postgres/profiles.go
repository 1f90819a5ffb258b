package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// GetProfile retrieves a user's donor profile.
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	var p types.UserProfile
	var due *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, currency, zakat_due_date, created_at, updated_at
		 FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Currency, &due, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, dbErr("get profile", err)
	}
	if due != nil {
		d := types.Date{Time: *due}
		p.ZakatDueDate = &d
	}
	return &p, nil
}

// UpsertProfile creates or replaces a user's donor profile and returns the
// stored row.
func (s *Store) UpsertProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	now := time.Now().UTC()
	if profile.Currency == "" {
		profile.Currency = "USD"
	}

	var due *time.Time
	if profile.ZakatDueDate != nil && !profile.ZakatDueDate.IsZero() {
		t := profile.ZakatDueDate.Time
		due = &t
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_profiles (user_id, display_name, currency, zakat_due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET display_name = $2, currency = $3, zakat_due_date = $4, updated_at = $5`,
		profile.UserID, profile.DisplayName, profile.Currency, due, now,
	)
	if err != nil {
		return nil, dbErr("upsert profile", err)
	}
	return s.GetProfile(ctx, profile.UserID)
}
