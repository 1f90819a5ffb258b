package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

func TestGetProfileNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	_, err = s.GetProfile(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	created, err := s.UpsertProfile(ctx, types.UserProfile{UserID: u.ID, DisplayName: "Amina K"})
	require.NoError(t, err)
	assert.Equal(t, "Amina K", created.DisplayName)
	assert.Equal(t, "USD", created.Currency, "currency defaults to USD")
	assert.Nil(t, created.ZakatDueDate)

	due := types.NewDate(2026, time.March, 1)
	updated, err := s.UpsertProfile(ctx, types.UserProfile{
		UserID:       u.ID,
		DisplayName:  "Amina K",
		Currency:     "GBP",
		ZakatDueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "GBP", updated.Currency)
	require.NotNil(t, updated.ZakatDueDate)
	assert.Equal(t, "2026-03-01", updated.ZakatDueDate.Format("2006-01-02"))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "created_at survives upserts")

	// Clearing the due date stores NULL again.
	cleared, err := s.UpsertProfile(ctx, types.UserProfile{UserID: u.ID, Currency: "GBP"})
	require.NoError(t, err)
	assert.Nil(t, cleared.ZakatDueDate)
}
