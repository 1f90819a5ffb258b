package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// ListTargets returns all per-charity dollar targets for a user, ordered by
// EIN for stable output.
func (s *Store) ListTargets(ctx context.Context, userID uuid.UUID) ([]types.CharityTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, ein, bucket_id, amount_cents, updated_at
		 FROM charity_targets WHERE user_id = ? ORDER BY ein`,
		userID,
	)
	if err != nil {
		return nil, dbErr("list targets", err)
	}
	defer rows.Close()

	targets := []types.CharityTarget{}
	for rows.Next() {
		var t types.CharityTarget
		var bucketID uuid.NullUUID
		var updated string
		if err := rows.Scan(&t.UserID, &t.EIN, &bucketID, &t.AmountCents, &updated); err != nil {
			return nil, dbErr("scan target", err)
		}
		if bucketID.Valid {
			id := bucketID.UUID
			t.BucketID = &id
		}
		if t.UpdatedAt, err = decodeTime(updated); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SetTarget creates or replaces the target for (user, EIN) and returns the
// stored row.
func (s *Store) SetTarget(ctx context.Context, target types.CharityTarget) (*types.CharityTarget, error) {
	ein, err := types.NormalizeEIN(target.EIN)
	if err != nil {
		return nil, err
	}

	out := target
	out.EIN = ein
	if out.AmountCents < 0 {
		out.AmountCents = 0
	}
	out.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO charity_targets (user_id, ein, bucket_id, amount_cents, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, ein) DO UPDATE
		 SET bucket_id = excluded.bucket_id,
		     amount_cents = excluded.amount_cents,
		     updated_at = excluded.updated_at`,
		out.UserID, out.EIN, out.BucketID, out.AmountCents, encodeTime(out.UpdatedAt),
	)
	if err != nil {
		return nil, dbErr("set target", err)
	}
	return &out, nil
}

// RemoveTarget deletes the target for (user, EIN).
func (s *Store) RemoveTarget(ctx context.Context, userID uuid.UUID, ein string) error {
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM charity_targets WHERE user_id = ? AND ein = ?`,
		userID, canonical,
	)
	if err != nil {
		return dbErr("remove target", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbErr("remove target", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
