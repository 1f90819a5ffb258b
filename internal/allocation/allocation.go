// Package allocation reconciles giving plans: bucket percentages, dollar
// amounts, and per-charity sub-targets stay mutually consistent as each one
// is edited. All operations are pure; they never mutate their input plan.
package allocation

import (
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// ErrBucketNotFound is returned when an operation names a bucket ID that is
// not in the plan.
var ErrBucketNotFound = errors.New("bucket not found in plan")

// basisPointsTotal is 100% expressed in hundredths of a percent. Percent
// arithmetic runs on integer basis points so two-decimal percentages carry
// no float drift.
const basisPointsTotal = 10000

// toBasisPoints converts a two-decimal percentage to basis points, clamping
// to [0, 100%].
func toBasisPoints(pct float64) int64 {
	bp := int64(math.Round(pct * 100))
	if bp < 0 {
		return 0
	}
	if bp > basisPointsTotal {
		return basisPointsTotal
	}
	return bp
}

// fromBasisPoints converts basis points back to a two-decimal percentage.
func fromBasisPoints(bp int64) float64 {
	return float64(bp) / 100
}

// share computes round(target × bp / 10000) in cents, rounding half up.
func share(targetCents, bp int64) int64 {
	return (targetCents*bp + basisPointsTotal/2) / basisPointsTotal
}

// correctLast forces vals to sum to total: the last entry takes the
// difference, and a negative result is pulled back from its predecessors so
// no entry drops below zero.
func correctLast(vals []int64, total int64) {
	if len(vals) == 0 {
		return
	}
	var sum int64
	for _, v := range vals[:len(vals)-1] {
		sum += v
	}
	vals[len(vals)-1] = total - sum
	for i := len(vals) - 1; i > 0 && vals[i] < 0; i-- {
		vals[i-1] += vals[i]
		vals[i] = 0
	}
}

// clonePlan deep-copies a plan with its buckets ordered by position, so the
// engine's "last bucket" is always the final slice element.
func clonePlan(p types.Plan) types.Plan {
	out := p
	out.Buckets = make([]types.Bucket, len(p.Buckets))
	for i, b := range p.Buckets {
		out.Buckets[i] = cloneBucket(b)
	}
	sort.SliceStable(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Position < out.Buckets[j].Position
	})
	return out
}

func cloneBucket(b types.Bucket) types.Bucket {
	out := b
	if b.Causes != nil {
		out.Causes = append([]string(nil), b.Causes...)
	}
	if b.CharityTargets != nil {
		out.CharityTargets = append([]types.CharitySubTarget(nil), b.CharityTargets...)
	}
	return out
}

// findBucket returns the index of the bucket with the given ID, or -1.
func findBucket(buckets []types.Bucket, id uuid.UUID) int {
	for i := range buckets {
		if buckets[i].ID == id {
			return i
		}
	}
	return -1
}

// deriveBucket recomputes a bucket's read-only fields from its sub-targets.
// The unallocated remainder is never clamped; over-allocation is flagged.
func deriveBucket(b *types.Bucket) {
	var allocated int64
	for _, ct := range b.CharityTargets {
		allocated += ct.AmountCents
	}
	b.UnallocatedCents = b.AmountCents - allocated
	b.OverAllocated = b.UnallocatedCents < 0
}

// resequence renumbers bucket positions 0..n-1 in slice order.
func resequence(buckets []types.Bucket) {
	for i := range buckets {
		buckets[i].Position = i
	}
}

// distributeAmounts recomputes every bucket amount from its percent. When the
// percents total exactly 100 the last bucket takes the rounding remainder so
// the amounts sum to the target; otherwise each bucket rounds independently.
func distributeAmounts(target int64, buckets []types.Bucket) {
	if len(buckets) == 0 {
		return
	}
	amounts := make([]int64, len(buckets))
	var totalBP int64
	for i := range buckets {
		bp := toBasisPoints(buckets[i].Percent)
		totalBP += bp
		amounts[i] = share(target, bp)
	}
	if totalBP == basisPointsTotal {
		correctLast(amounts, target)
	}
	for i := range buckets {
		buckets[i].AmountCents = amounts[i]
		deriveBucket(&buckets[i])
	}
}

// SetTarget sets the plan's yearly target. Percents are unchanged; every
// bucket amount is recomputed from its percent. Negative targets clamp to 0.
func SetTarget(p types.Plan, cents int64) types.Plan {
	out := clonePlan(p)
	if cents < 0 {
		cents = 0
	}
	out.TargetCents = cents
	distributeAmounts(out.TargetCents, out.Buckets)
	return out
}

// SetBucketPercent sets one bucket's share of the target. The percent is
// clamped to [0, 100] and rounded to two decimals; only that bucket's amount
// is recomputed.
func SetBucketPercent(p types.Plan, id uuid.UUID, pct float64) (types.Plan, error) {
	out := clonePlan(p)
	i := findBucket(out.Buckets, id)
	if i < 0 {
		return types.Plan{}, ErrBucketNotFound
	}
	bp := toBasisPoints(pct)
	out.Buckets[i].Percent = fromBasisPoints(bp)
	out.Buckets[i].AmountCents = share(out.TargetCents, bp)
	deriveBucket(&out.Buckets[i])
	return out, nil
}

// SetBucketAmount sets one bucket's dollar amount directly. Negative amounts
// clamp to 0; the bucket's percent is derived from the plan target at two
// decimals. A zero target leaves the percent at 0.
func SetBucketAmount(p types.Plan, id uuid.UUID, cents int64) (types.Plan, error) {
	out := clonePlan(p)
	i := findBucket(out.Buckets, id)
	if i < 0 {
		return types.Plan{}, ErrBucketNotFound
	}
	if cents < 0 {
		cents = 0
	}
	out.Buckets[i].AmountCents = cents
	if out.TargetCents > 0 {
		bp := (cents*basisPointsTotal + out.TargetCents/2) / out.TargetCents
		if bp > basisPointsTotal {
			bp = basisPointsTotal
		}
		out.Buckets[i].Percent = fromBasisPoints(bp)
	} else {
		out.Buckets[i].Percent = 0
	}
	deriveBucket(&out.Buckets[i])
	return out, nil
}

// AddBucket appends a new bucket at the end of the plan with percent 0 and
// amount 0. The created bucket is returned alongside the new plan.
func AddBucket(p types.Plan, name string, causes []string) (types.Plan, types.Bucket) {
	out := clonePlan(p)
	b := types.Bucket{
		ID:       uuid.New(),
		Name:     name,
		Causes:   append([]string(nil), causes...),
		Position: len(out.Buckets),
	}
	deriveBucket(&b)
	out.Buckets = append(out.Buckets, b)
	return out, b
}

// RemoveBucket deletes a bucket. The remaining percents are rescaled
// proportionally so they total 100 again, with the last bucket absorbing the
// rounding correction; removing a 0% bucket leaves the others untouched.
// Amounts are then redistributed from the rescaled percents.
func RemoveBucket(p types.Plan, id uuid.UUID) (types.Plan, error) {
	out := clonePlan(p)
	i := findBucket(out.Buckets, id)
	if i < 0 {
		return types.Plan{}, ErrBucketNotFound
	}
	removedBP := toBasisPoints(out.Buckets[i].Percent)
	out.Buckets = append(out.Buckets[:i], out.Buckets[i+1:]...)
	resequence(out.Buckets)

	if removedBP > 0 && len(out.Buckets) > 0 {
		bps := make([]int64, len(out.Buckets))
		var totalBP int64
		for j := range out.Buckets {
			bps[j] = toBasisPoints(out.Buckets[j].Percent)
			totalBP += bps[j]
		}
		if totalBP > 0 {
			for j := range bps {
				bps[j] = (bps[j]*basisPointsTotal + totalBP/2) / totalBP
			}
			correctLast(bps, basisPointsTotal)
			for j := range out.Buckets {
				out.Buckets[j].Percent = fromBasisPoints(bps[j])
			}
		}
	}
	distributeAmounts(out.TargetCents, out.Buckets)
	return out, nil
}

// DistributeEvenly splits 100% evenly across the plan's buckets at two
// decimals; the last bucket absorbs the remainder (three buckets become
// 33.33 / 33.33 / 33.34). Amounts are redistributed from the new percents.
func DistributeEvenly(p types.Plan) types.Plan {
	out := clonePlan(p)
	n := len(out.Buckets)
	if n == 0 {
		return out
	}
	bps := make([]int64, n)
	for i := range bps {
		bps[i] = basisPointsTotal / int64(n)
	}
	correctLast(bps, basisPointsTotal)
	for i := range out.Buckets {
		out.Buckets[i].Percent = fromBasisPoints(bps[i])
	}
	distributeAmounts(out.TargetCents, out.Buckets)
	return out
}

// Normalize re-derives a plan's derived fields without touching user-edited
// quantities: buckets are ordered and renumbered, percents clamped to two
// decimals in [0, 100], negative money clamped to 0, sub-target EINs
// canonicalized, and unallocated remainders recomputed. Applied after store
// loads and before saves; idempotent.
func Normalize(p types.Plan) types.Plan {
	out := clonePlan(p)
	if out.TargetCents < 0 {
		out.TargetCents = 0
	}
	resequence(out.Buckets)
	for i := range out.Buckets {
		b := &out.Buckets[i]
		b.Percent = fromBasisPoints(toBasisPoints(b.Percent))
		if b.AmountCents < 0 {
			b.AmountCents = 0
		}
		kept := b.CharityTargets[:0]
		for _, ct := range b.CharityTargets {
			ein, err := types.NormalizeEIN(ct.EIN)
			if err != nil {
				continue
			}
			ct.EIN = ein
			if ct.AmountCents < 0 {
				ct.AmountCents = 0
			}
			kept = append(kept, ct)
		}
		b.CharityTargets = kept
		deriveBucket(b)
	}
	return out
}
