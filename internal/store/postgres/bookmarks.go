package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// ListBookmarks returns a user's saved charities, most recent first.
func (s *Store) ListBookmarks(ctx context.Context, userID uuid.UUID) ([]types.Bookmark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, ein, created_at FROM bookmarks
		 WHERE user_id = $1 ORDER BY created_at DESC, ein`, userID,
	)
	if err != nil {
		return nil, dbErr("list bookmarks", err)
	}
	defer rows.Close()

	bookmarks := []types.Bookmark{}
	for rows.Next() {
		var b types.Bookmark
		if err := rows.Scan(&b.UserID, &b.EIN, &b.CreatedAt); err != nil {
			return nil, dbErr("scan bookmark", err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// AddBookmark saves a charity for a user. Adding an existing bookmark is a
// no-op that returns the stored row.
func (s *Store) AddBookmark(ctx context.Context, userID uuid.UUID, ein string) (*types.Bookmark, error) {
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return nil, err
	}

	b := types.Bookmark{UserID: userID, EIN: canonical, CreatedAt: time.Now().UTC()}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO bookmarks (user_id, ein, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, ein) DO NOTHING`,
		b.UserID, b.EIN, b.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("add bookmark", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT created_at FROM bookmarks WHERE user_id = $1 AND ein = $2`,
		b.UserID, b.EIN,
	).Scan(&b.CreatedAt)
	if err != nil {
		return nil, dbErr("read bookmark back", err)
	}
	return &b, nil
}

// RemoveBookmark deletes a bookmark; removing a missing one returns
// store.ErrNotFound.
func (s *Store) RemoveBookmark(ctx context.Context, userID uuid.UUID, ein string) error {
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND ein = $2`, userID, canonical,
	)
	if err != nil {
		return dbErr("remove bookmark", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
