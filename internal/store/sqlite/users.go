package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/store"
)

// CreateUser inserts a new account. Emails are stored lowercased; a taken
// email returns store.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, displayName, email, passwordHash string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email,
	).Scan(&exists)
	if err != nil {
		return nil, dbErr("check email existence", err)
	}
	if exists {
		return nil, store.ErrEmailTaken
	}

	now := time.Now().UTC()
	u := &store.User{
		ID:           uuid.New(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, encodeTime(u.CreatedAt), encodeTime(u.UpdatedAt),
	)
	if err != nil {
		return nil, dbErr("create user", err)
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	return s.scanUser(ctx,
		`SELECT id, email, display_name, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.scanUser(ctx,
		`SELECT id, email, display_name, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) scanUser(ctx context.Context, query string, arg any) (*store.User, error) {
	var u store.User
	var created, updated string
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, dbErr("get user", err)
	}
	if u.CreatedAt, err = decodeTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = decodeTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, encodeTime(time.Now().UTC()), id,
	)
	if err != nil {
		return dbErr("update password", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dbErr("update password", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
