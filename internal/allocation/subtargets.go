package allocation

import (
	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// SetCharityTarget upserts a per-charity dollar target inside a bucket,
// keyed by canonical EIN. Negative amounts clamp to 0. The bucket's
// unallocated remainder is recomputed; over-allocation is flagged, never
// clamped.
func SetCharityTarget(p types.Plan, bucketID uuid.UUID, ein string, cents int64) (types.Plan, error) {
	out := clonePlan(p)
	i := findBucket(out.Buckets, bucketID)
	if i < 0 {
		return types.Plan{}, ErrBucketNotFound
	}
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return types.Plan{}, err
	}
	if cents < 0 {
		cents = 0
	}

	b := &out.Buckets[i]
	updated := false
	for j := range b.CharityTargets {
		if b.CharityTargets[j].EIN == canonical {
			b.CharityTargets[j].AmountCents = cents
			updated = true
			break
		}
	}
	if !updated {
		b.CharityTargets = append(b.CharityTargets, types.CharitySubTarget{
			EIN:         canonical,
			AmountCents: cents,
		})
	}
	deriveBucket(b)
	return out, nil
}

// RemoveCharityTarget drops a charity sub-target from a bucket. Removing an
// EIN the bucket does not carry is a no-op.
func RemoveCharityTarget(p types.Plan, bucketID uuid.UUID, ein string) (types.Plan, error) {
	out := clonePlan(p)
	i := findBucket(out.Buckets, bucketID)
	if i < 0 {
		return types.Plan{}, ErrBucketNotFound
	}
	canonical, err := types.NormalizeEIN(ein)
	if err != nil {
		return types.Plan{}, err
	}

	b := &out.Buckets[i]
	for j := range b.CharityTargets {
		if b.CharityTargets[j].EIN == canonical {
			b.CharityTargets = append(b.CharityTargets[:j], b.CharityTargets[j+1:]...)
			break
		}
	}
	deriveBucket(b)
	return out, nil
}
