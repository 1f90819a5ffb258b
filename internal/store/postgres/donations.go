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

const donationColumns = `id, user_id, ein, bucket_id, amount_cents, currency, kind, note, donated_on, created_at, updated_at`

// ListDonations returns a user's giving history, newest gift first. A
// non-zero year restricts to donations made in that calendar year.
func (s *Store) ListDonations(ctx context.Context, userID uuid.UUID, year int) ([]types.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM giving_history WHERE user_id = $1`
	args := []any{userID}
	if year > 0 {
		query += ` AND donated_on >= make_date($2, 1, 1) AND donated_on < make_date($2 + 1, 1, 1)`
		args = append(args, year)
	}
	query += ` ORDER BY donated_on DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list donations", err)
	}
	defer rows.Close()

	donations := []types.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// GetDonation retrieves one donation owned by the user.
func (s *Store) GetDonation(ctx context.Context, userID, id uuid.UUID) (*types.Donation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+donationColumns+` FROM giving_history WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// CreateDonation inserts a giving-history entry and returns the stored row.
func (s *Store) CreateDonation(ctx context.Context, d types.Donation) (*types.Donation, error) {
	normalized, err := normalizeDonation(&d)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if normalized.ID == uuid.Nil {
		normalized.ID = uuid.New()
	}
	normalized.CreatedAt = now
	normalized.UpdatedAt = now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO giving_history (`+donationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		normalized.ID, normalized.UserID, normalized.EIN, normalized.BucketID,
		normalized.AmountCents, normalized.Currency, normalized.Kind, normalized.Note,
		normalized.DonatedOn.Time, normalized.CreatedAt, normalized.UpdatedAt,
	)
	if err != nil {
		return nil, dbErr("create donation", err)
	}
	return normalized, nil
}

// UpdateDonation replaces a donation's editable fields and returns the
// stored row. The donation must belong to d.UserID.
func (s *Store) UpdateDonation(ctx context.Context, d types.Donation) (*types.Donation, error) {
	normalized, err := normalizeDonation(&d)
	if err != nil {
		return nil, err
	}
	normalized.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE giving_history
		 SET ein = $1, bucket_id = $2, amount_cents = $3, currency = $4,
		     kind = $5, note = $6, donated_on = $7, updated_at = $8
		 WHERE user_id = $9 AND id = $10`,
		normalized.EIN, normalized.BucketID, normalized.AmountCents, normalized.Currency,
		normalized.Kind, normalized.Note, normalized.DonatedOn.Time, normalized.UpdatedAt,
		normalized.UserID, normalized.ID,
	)
	if err != nil {
		return nil, dbErr("update donation", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetDonation(ctx, normalized.UserID, normalized.ID)
}

// DeleteDonation removes a donation owned by the user.
func (s *Store) DeleteDonation(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM giving_history WHERE user_id = $1 AND id = $2`, userID, id,
	)
	if err != nil {
		return dbErr("delete donation", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// normalizeDonation canonicalizes the EIN and fills currency and kind
// defaults. Returns a copy; the caller's donation is never mutated.
func normalizeDonation(d *types.Donation) (*types.Donation, error) {
	out := *d
	if out.EIN != "" {
		canonical, err := types.NormalizeEIN(out.EIN)
		if err != nil {
			return nil, err
		}
		out.EIN = canonical
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}
	if out.Kind == "" {
		out.Kind = types.KindOther
	}
	if !out.Kind.IsValid() {
		return nil, types.ErrInvalidGivingKind
	}
	if out.DonatedOn.IsZero() {
		now := time.Now().UTC()
		out.DonatedOn = types.NewDate(now.Year(), now.Month(), now.Day())
	}
	return &out, nil
}

// scanDonation reads one donation row.
func scanDonation(row pgx.Row) (types.Donation, error) {
	var d types.Donation
	var donatedOn time.Time
	err := row.Scan(
		&d.ID, &d.UserID, &d.EIN, &d.BucketID, &d.AmountCents, &d.Currency,
		&d.Kind, &d.Note, &donatedOn, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, err
		}
		return d, dbErr("scan donation", err)
	}
	d.DonatedOn = types.Date{Time: donatedOn}
	return d, nil
}
