package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// GetPlan assembles the giving plan for one year: the plan row, its buckets
// in position order, and the charity targets assigned to those buckets.
func (s *Store) GetPlan(ctx context.Context, userID uuid.UUID, year int) (*types.Plan, error) {
	plan := types.Plan{Year: year, Buckets: []types.Bucket{}}
	err := s.pool.QueryRow(ctx,
		`SELECT target_cents, currency, updated_at FROM giving_plans WHERE user_id = $1 AND year = $2`,
		userID, year,
	).Scan(&plan.TargetCents, &plan.Currency, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, dbErr("get plan", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, causes, percent_bp, amount_cents, position
		 FROM giving_buckets WHERE user_id = $1 AND year = $2 ORDER BY position`,
		userID, year,
	)
	if err != nil {
		return nil, dbErr("list buckets", err)
	}
	defer rows.Close()

	byID := map[uuid.UUID]int{}
	for rows.Next() {
		var b types.Bucket
		var causes []byte
		var percentBP int
		if err := rows.Scan(&b.ID, &b.Name, &causes, &percentBP, &b.AmountCents, &b.Position); err != nil {
			return nil, dbErr("scan bucket", err)
		}
		b.Causes = []string{}
		if len(causes) > 0 {
			if err := json.Unmarshal(causes, &b.Causes); err != nil {
				return nil, dbErr("decode bucket causes", err)
			}
		}
		b.Percent = float64(percentBP) / 100
		b.CharityTargets = []types.CharitySubTarget{}
		byID[b.ID] = len(plan.Buckets)
		plan.Buckets = append(plan.Buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list buckets", err)
	}

	targetRows, err := s.pool.Query(ctx,
		`SELECT ein, bucket_id, amount_cents
		 FROM charity_targets WHERE user_id = $1 AND bucket_id IS NOT NULL ORDER BY ein`,
		userID,
	)
	if err != nil {
		return nil, dbErr("list plan targets", err)
	}
	defer targetRows.Close()

	for targetRows.Next() {
		var ein string
		var bucketID uuid.UUID
		var amount int64
		if err := targetRows.Scan(&ein, &bucketID, &amount); err != nil {
			return nil, dbErr("scan plan target", err)
		}
		if i, ok := byID[bucketID]; ok {
			plan.Buckets[i].CharityTargets = append(plan.Buckets[i].CharityTargets,
				types.CharitySubTarget{EIN: ein, AmountCents: amount})
		}
	}
	if err := targetRows.Err(); err != nil {
		return nil, dbErr("list plan targets", err)
	}
	return &plan, nil
}

// SavePlan persists a plan, its buckets, and the bucket-to-charity target
// assignments, then returns the stored plan. Buckets absent from the incoming
// plan are deleted; their target assignments fall back to unassigned. Targets
// assigned to a kept bucket but missing from its sub-target list are
// unassigned rather than deleted, so the dollar target itself survives.
func (s *Store) SavePlan(ctx context.Context, userID uuid.UUID, plan types.Plan) (*types.Plan, error) {
	now := time.Now().UTC()
	if plan.Currency == "" {
		plan.Currency = "USD"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, dbErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO giving_plans (user_id, year, target_cents, currency, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, year) DO UPDATE
		 SET target_cents = EXCLUDED.target_cents,
		     currency = EXCLUDED.currency,
		     updated_at = EXCLUDED.updated_at`,
		userID, plan.Year, plan.TargetCents, plan.Currency, now,
	)
	if err != nil {
		return nil, dbErr("save plan", err)
	}

	kept := map[uuid.UUID]bool{}
	for i := range plan.Buckets {
		if plan.Buckets[i].ID == uuid.Nil {
			plan.Buckets[i].ID = uuid.New()
		}
		kept[plan.Buckets[i].ID] = true
	}

	// Removed buckets go first. The foreign keys on charity_targets and
	// giving_history null out their bucket references.
	existingRows, err := tx.Query(ctx,
		`SELECT id FROM giving_buckets WHERE user_id = $1 AND year = $2`, userID, plan.Year,
	)
	if err != nil {
		return nil, dbErr("list buckets", err)
	}
	removed := []uuid.UUID{}
	for existingRows.Next() {
		var id uuid.UUID
		if err := existingRows.Scan(&id); err != nil {
			existingRows.Close()
			return nil, dbErr("scan bucket id", err)
		}
		if !kept[id] {
			removed = append(removed, id)
		}
	}
	existingRows.Close()
	if err := existingRows.Err(); err != nil {
		return nil, dbErr("list buckets", err)
	}
	for _, id := range removed {
		if _, err := tx.Exec(ctx, `DELETE FROM giving_buckets WHERE id = $1`, id); err != nil {
			return nil, dbErr("delete bucket", err)
		}
	}

	assigned := map[string]types.CharityTarget{}
	for _, b := range plan.Buckets {
		causes, err := json.Marshal(b.Causes)
		if err != nil {
			return nil, dbErr("encode bucket causes", err)
		}
		percentBP := int(math.Round(b.Percent * 100))
		_, err = tx.Exec(ctx,
			`INSERT INTO giving_buckets (id, user_id, year, name, causes, percent_bp, amount_cents, position, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name,
			     causes = EXCLUDED.causes,
			     percent_bp = EXCLUDED.percent_bp,
			     amount_cents = EXCLUDED.amount_cents,
			     position = EXCLUDED.position,
			     updated_at = EXCLUDED.updated_at`,
			b.ID, userID, plan.Year, b.Name, causes, percentBP, b.AmountCents, b.Position, now,
		)
		if err != nil {
			return nil, dbErr("save bucket", err)
		}

		bucketID := b.ID
		for _, sub := range b.CharityTargets {
			ein, err := types.NormalizeEIN(sub.EIN)
			if err != nil {
				return nil, err
			}
			assigned[ein] = types.CharityTarget{
				UserID:      userID,
				EIN:         ein,
				BucketID:    &bucketID,
				AmountCents: sub.AmountCents,
			}
		}
	}

	// Unassign targets that point at one of this plan's buckets but no
	// longer appear in any sub-target list.
	currentRows, err := tx.Query(ctx,
		`SELECT ein, bucket_id FROM charity_targets WHERE user_id = $1 AND bucket_id IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, dbErr("list plan targets", err)
	}
	stale := []string{}
	for currentRows.Next() {
		var ein string
		var bucketID uuid.UUID
		if err := currentRows.Scan(&ein, &bucketID); err != nil {
			currentRows.Close()
			return nil, dbErr("scan plan target", err)
		}
		if _, ok := assigned[ein]; !ok && kept[bucketID] {
			stale = append(stale, ein)
		}
	}
	currentRows.Close()
	if err := currentRows.Err(); err != nil {
		return nil, dbErr("list plan targets", err)
	}
	for _, ein := range stale {
		_, err := tx.Exec(ctx,
			`UPDATE charity_targets SET bucket_id = NULL, updated_at = $1 WHERE user_id = $2 AND ein = $3`,
			now, userID, ein,
		)
		if err != nil {
			return nil, dbErr("unassign target", err)
		}
	}

	for _, t := range assigned {
		_, err := tx.Exec(ctx,
			`INSERT INTO charity_targets (user_id, ein, bucket_id, amount_cents, updated_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, ein) DO UPDATE
			 SET bucket_id = EXCLUDED.bucket_id,
			     amount_cents = EXCLUDED.amount_cents,
			     updated_at = EXCLUDED.updated_at`,
			t.UserID, t.EIN, t.BucketID, t.AmountCents, now,
		)
		if err != nil {
			return nil, dbErr("save plan target", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dbErr("commit plan", err)
	}
	return s.GetPlan(ctx, userID, plan.Year)
}
