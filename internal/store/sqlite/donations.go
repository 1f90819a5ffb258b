package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

const donationColumns = `id, user_id, ein, bucket_id, amount_cents, currency, kind, note, donated_on, created_at, updated_at`

// ListDonations returns a user's giving history, newest gift first. A
// non-zero year restricts to donations made in that calendar year.
func (s *Store) ListDonations(ctx context.Context, userID uuid.UUID, year int) ([]types.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM giving_history WHERE user_id = ?`
	args := []any{userID}
	if year > 0 {
		query += ` AND donated_on >= ? AND donated_on < ?`
		args = append(args, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-01-01", year+1))
	}
	query += ` ORDER BY donated_on DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list donations", err)
	}
	defer rows.Close()

	donations := []types.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// GetDonation retrieves one donation owned by the user.
func (s *Store) GetDonation(ctx context.Context, userID, id uuid.UUID) (*types.Donation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM giving_history WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	d, err := scanDonation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO giving_history (`+donationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		normalized.ID, normalized.UserID, normalized.EIN, normalized.BucketID,
		normalized.AmountCents, normalized.Currency, string(normalized.Kind), normalized.Note,
		encodeDate(normalized.DonatedOn), encodeTime(normalized.CreatedAt), encodeTime(normalized.UpdatedAt),
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

	res, err := s.db.ExecContext(ctx,
		`UPDATE giving_history
		 SET ein = ?, bucket_id = ?, amount_cents = ?, currency = ?,
		     kind = ?, note = ?, donated_on = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		normalized.EIN, normalized.BucketID, normalized.AmountCents, normalized.Currency,
		string(normalized.Kind), normalized.Note, encodeDate(normalized.DonatedOn),
		encodeTime(normalized.UpdatedAt), normalized.UserID, normalized.ID,
	)
	if err != nil {
		return nil, dbErr("update donation", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, dbErr("update donation", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetDonation(ctx, normalized.UserID, normalized.ID)
}

// DeleteDonation removes a donation owned by the user.
func (s *Store) DeleteDonation(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM giving_history WHERE user_id = ? AND id = ?`, userID, id,
	)
	if err != nil {
		return dbErr("delete donation", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbErr("delete donation", err)
	}
	if affected == 0 {
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

// scanDonation reads one donation row through the given scan function.
func scanDonation(scan func(...any) error) (types.Donation, error) {
	var d types.Donation
	var bucketID uuid.NullUUID
	var kind, donatedOn, created, updated string
	err := scan(
		&d.ID, &d.UserID, &d.EIN, &bucketID, &d.AmountCents, &d.Currency,
		&kind, &d.Note, &donatedOn, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, dbErr("scan donation", err)
	}
	if bucketID.Valid {
		id := bucketID.UUID
		d.BucketID = &id
	}
	d.Kind = types.GivingKind(kind)
	if d.DonatedOn, err = types.ParseDate(donatedOn); err != nil {
		return d, dbErr("parse donation date", err)
	}
	if d.CreatedAt, err = decodeTime(created); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = decodeTime(updated); err != nil {
		return d, err
	}
	return d, nil
}
