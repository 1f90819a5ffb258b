package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

func TestGetPlanNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	_, err = s.GetPlan(ctx, u.ID, 2025)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSavePlanRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	saved, err := s.SavePlan(ctx, u.ID, types.Plan{
		Year:        2025,
		TargetCents: 1000000,
		Buckets: []types.Bucket{
			{
				Name: "Zakat", Causes: []string{"poverty", "relief"},
				Percent: 33.33, AmountCents: 333300, Position: 0,
				CharityTargets: []types.CharitySubTarget{
					{EIN: "13-1837418", AmountCents: 200000},
				},
			},
			{
				Name: "Sadaqah", Causes: []string{},
				Percent: 66.67, AmountCents: 666700, Position: 1,
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2025, saved.Year)
	assert.Equal(t, int64(1000000), saved.TargetCents)
	assert.Equal(t, "USD", saved.Currency, "currency defaults to USD")
	require.Len(t, saved.Buckets, 2)

	zakat := saved.Buckets[0]
	assert.NotEqual(t, uuid.Nil, zakat.ID, "new buckets get ids assigned")
	assert.Equal(t, "Zakat", zakat.Name)
	assert.Equal(t, []string{"poverty", "relief"}, zakat.Causes)
	assert.Equal(t, 33.33, zakat.Percent, "percents survive the round trip exactly")
	assert.Equal(t, int64(333300), zakat.AmountCents)
	require.Len(t, zakat.CharityTargets, 1)
	assert.Equal(t, "131837418", zakat.CharityTargets[0].EIN)
	assert.Equal(t, int64(200000), zakat.CharityTargets[0].AmountCents)

	sadaqah := saved.Buckets[1]
	assert.NotNil(t, sadaqah.Causes)
	assert.Empty(t, sadaqah.Causes)
	assert.NotNil(t, sadaqah.CharityTargets)
	assert.Empty(t, sadaqah.CharityTargets)

	got, err := s.GetPlan(ctx, u.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestSavePlanSyncsTargetTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	saved, err := s.SavePlan(ctx, u.ID, types.Plan{
		Year:        2025,
		TargetCents: 500000,
		Buckets: []types.Bucket{{
			Name: "Zakat", Percent: 100, AmountCents: 500000,
			CharityTargets: []types.CharitySubTarget{{EIN: "131837418", AmountCents: 100000}},
		}},
	})
	require.NoError(t, err)

	// The sub-target materializes as a charity target assigned to the bucket.
	targets, err := s.ListTargets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.NotNil(t, targets[0].BucketID)
	assert.Equal(t, saved.Buckets[0].ID, *targets[0].BucketID)
	assert.Equal(t, int64(100000), targets[0].AmountCents)
}

func TestSavePlanUnassignsDroppedSubTargets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	saved, err := s.SavePlan(ctx, u.ID, types.Plan{
		Year:        2025,
		TargetCents: 500000,
		Buckets: []types.Bucket{{
			Name: "Zakat", Percent: 100, AmountCents: 500000,
			CharityTargets: []types.CharitySubTarget{{EIN: "131837418", AmountCents: 100000}},
		}},
	})
	require.NoError(t, err)

	// Save again without the sub-target. The dollar target survives but is
	// no longer tied to the bucket.
	saved.Buckets[0].CharityTargets = nil
	resaved, err := s.SavePlan(ctx, u.ID, *saved)
	require.NoError(t, err)
	assert.Empty(t, resaved.Buckets[0].CharityTargets)

	targets, err := s.ListTargets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Nil(t, targets[0].BucketID)
	assert.Equal(t, int64(100000), targets[0].AmountCents)
}

func TestSavePlanDeletesRemovedBuckets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	saved, err := s.SavePlan(ctx, u.ID, types.Plan{
		Year:        2025,
		TargetCents: 1000000,
		Buckets: []types.Bucket{
			{
				Name: "Zakat", Percent: 50, AmountCents: 500000, Position: 0,
				CharityTargets: []types.CharitySubTarget{{EIN: "131837418", AmountCents: 100000}},
			},
			{Name: "Sadaqah", Percent: 50, AmountCents: 500000, Position: 1},
		},
	})
	require.NoError(t, err)
	zakatID := saved.Buckets[0].ID

	// Record a donation against the bucket that is about to go away.
	d, err := s.CreateDonation(ctx, types.Donation{
		UserID: u.ID, BucketID: &zakatID, AmountCents: 5000,
		DonatedOn: types.NewDate(2025, time.February, 1),
	})
	require.NoError(t, err)

	saved.Buckets = saved.Buckets[1:]
	saved.Buckets[0].Position = 0
	resaved, err := s.SavePlan(ctx, u.ID, *saved)
	require.NoError(t, err)
	require.Len(t, resaved.Buckets, 1)
	assert.Equal(t, "Sadaqah", resaved.Buckets[0].Name)

	// The target the deleted bucket held is unassigned, not deleted.
	targets, err := s.ListTargets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Nil(t, targets[0].BucketID)

	// The donation survives with its bucket reference cleared.
	got, err := s.GetDonation(ctx, u.ID, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BucketID)
}

func TestSavePlanMovesSubTargetBetweenBuckets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	saved, err := s.SavePlan(ctx, u.ID, types.Plan{
		Year:        2025,
		TargetCents: 1000000,
		Buckets: []types.Bucket{
			{
				Name: "Zakat", Percent: 50, AmountCents: 500000, Position: 0,
				CharityTargets: []types.CharitySubTarget{{EIN: "131837418", AmountCents: 100000}},
			},
			{Name: "Sadaqah", Percent: 50, AmountCents: 500000, Position: 1},
		},
	})
	require.NoError(t, err)

	saved.Buckets[0].CharityTargets = nil
	saved.Buckets[1].CharityTargets = []types.CharitySubTarget{{EIN: "131837418", AmountCents: 150000}}
	resaved, err := s.SavePlan(ctx, u.ID, *saved)
	require.NoError(t, err)

	assert.Empty(t, resaved.Buckets[0].CharityTargets)
	require.Len(t, resaved.Buckets[1].CharityTargets, 1)
	assert.Equal(t, int64(150000), resaved.Buckets[1].CharityTargets[0].AmountCents)

	targets, err := s.ListTargets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.NotNil(t, targets[0].BucketID)
	assert.Equal(t, resaved.Buckets[1].ID, *targets[0].BucketID)
}

func TestPlansAreIndependentPerYear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Amina", "amina@example.com", "hash")
	require.NoError(t, err)

	_, err = s.SavePlan(ctx, u.ID, types.Plan{
		Year: 2024, TargetCents: 400000,
		Buckets: []types.Bucket{{Name: "Zakat", Percent: 100, AmountCents: 400000}},
	})
	require.NoError(t, err)

	_, err = s.SavePlan(ctx, u.ID, types.Plan{
		Year: 2025, TargetCents: 600000,
		Buckets: []types.Bucket{{Name: "Everything", Percent: 100, AmountCents: 600000}},
	})
	require.NoError(t, err)

	old, err := s.GetPlan(ctx, u.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(400000), old.TargetCents)
	require.Len(t, old.Buckets, 1)
	assert.Equal(t, "Zakat", old.Buckets[0].Name)

	current, err := s.GetPlan(ctx, u.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(600000), current.TargetCents)
}
