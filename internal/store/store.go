// Package store defines the storage interface for user data: accounts,
// profiles, bookmarks, donations, charity targets, and giving plans. Two
// drivers implement it (postgres and sqlite); the server is written against
// the interface so deployments pick a backend by configuration.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// ErrNotFound is returned when a requested row does not exist. Drivers map
// their engine-specific no-rows errors onto it so callers match with
// errors.Is.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by CreateUser when the email is already
// registered.
var ErrEmailTaken = errors.New("email already registered")

// User is the stored account row. The password hash stays inside the auth
// layer; API responses use types.User.
type User struct {
	ID           uuid.UUID
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIUser converts the row to its API shape, dropping the password hash.
func (u *User) APIUser() *types.User {
	if u == nil {
		return nil
	}
	return &types.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Store is the full storage surface. All methods take a context; mutating
// methods return the canonical post-write state. Drivers normalize EINs on
// write and return empty slices rather than nil for empty lists.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, displayName, email, passwordHash string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Profiles.
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpsertProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error)

	// Bookmarks.
	ListBookmarks(ctx context.Context, userID uuid.UUID) ([]types.Bookmark, error)
	AddBookmark(ctx context.Context, userID uuid.UUID, ein string) (*types.Bookmark, error)
	RemoveBookmark(ctx context.Context, userID uuid.UUID, ein string) error

	// Donations.
	ListDonations(ctx context.Context, userID uuid.UUID, year int) ([]types.Donation, error)
	GetDonation(ctx context.Context, userID, id uuid.UUID) (*types.Donation, error)
	CreateDonation(ctx context.Context, d types.Donation) (*types.Donation, error)
	UpdateDonation(ctx context.Context, d types.Donation) (*types.Donation, error)
	DeleteDonation(ctx context.Context, userID, id uuid.UUID) error

	// Charity targets.
	ListTargets(ctx context.Context, userID uuid.UUID) ([]types.CharityTarget, error)
	SetTarget(ctx context.Context, target types.CharityTarget) (*types.CharityTarget, error)
	RemoveTarget(ctx context.Context, userID uuid.UUID, ein string) error

	// Giving plans. GetPlan assembles the plan row, its buckets, and the
	// charity targets assigned to those buckets; SavePlan persists all three
	// and unassigns targets whose bucket disappeared.
	GetPlan(ctx context.Context, userID uuid.UUID, year int) (*types.Plan, error)
	SavePlan(ctx context.Context, userID uuid.UUID, plan types.Plan) (*types.Plan, error)

	// EnsureSchema creates missing tables and indexes.
	EnsureSchema(ctx context.Context) error

	Ping(ctx context.Context) error
	Close()
}
