package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// GetProfile retrieves a user's donor profile.
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	var p types.UserProfile
	var due sql.NullString
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, currency, zakat_due_date, created_at, updated_at
		 FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Currency, &due, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, dbErr("get profile", err)
	}
	if due.Valid {
		d, err := types.ParseDate(due.String)
		if err != nil {
			return nil, dbErr("parse zakat due date", err)
		}
		p.ZakatDueDate = &d
	}
	if p.CreatedAt, err = decodeTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = decodeTime(updated); err != nil {
		return nil, err
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

	var due any
	if profile.ZakatDueDate != nil {
		due = encodeDate(*profile.ZakatDueDate)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, display_name, currency, zakat_due_date, created_at, updated_at)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET display_name = ?2, currency = ?3, zakat_due_date = ?4, updated_at = ?5`,
		profile.UserID, profile.DisplayName, profile.Currency, due, encodeTime(now),
	)
	if err != nil {
		return nil, dbErr("upsert profile", err)
	}
	return s.GetProfile(ctx, profile.UserID)
}
