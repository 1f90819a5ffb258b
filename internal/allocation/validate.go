package allocation

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// Validate checks a plan's allocation invariants: percents are two-decimal
// values in [0, 100] totaling exactly 100 when the plan has buckets and a
// non-zero target, amounts are non-negative, bucket IDs are unique, and no
// bucket lists the same charity twice. The first violation found is returned.
func Validate(p types.Plan) error {
	if p.TargetCents < 0 {
		return fmt.Errorf("plan target is negative: %d", p.TargetCents)
	}

	seen := make(map[uuid.UUID]struct{}, len(p.Buckets))
	var totalBP int64
	for _, b := range p.Buckets {
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate bucket id %s", b.ID)
		}
		seen[b.ID] = struct{}{}

		if b.Percent < 0 || b.Percent > 100 {
			return fmt.Errorf("bucket %q percent %.4f out of range", b.Name, b.Percent)
		}
		if math.Abs(b.Percent*100-math.Round(b.Percent*100)) > 1e-6 {
			return fmt.Errorf("bucket %q percent %.4f has more than two decimals", b.Name, b.Percent)
		}
		if b.AmountCents < 0 {
			return fmt.Errorf("bucket %q amount is negative: %d", b.Name, b.AmountCents)
		}
		totalBP += toBasisPoints(b.Percent)

		einSeen := make(map[string]struct{}, len(b.CharityTargets))
		for _, ct := range b.CharityTargets {
			if _, err := types.NormalizeEIN(ct.EIN); err != nil {
				return fmt.Errorf("bucket %q charity target: %w", b.Name, err)
			}
			if _, dup := einSeen[ct.EIN]; dup {
				return fmt.Errorf("bucket %q lists charity %s twice", b.Name, ct.EIN)
			}
			einSeen[ct.EIN] = struct{}{}
			if ct.AmountCents < 0 {
				return fmt.Errorf("bucket %q charity %s amount is negative: %d", b.Name, ct.EIN, ct.AmountCents)
			}
		}
	}

	if len(p.Buckets) > 0 && p.TargetCents > 0 && totalBP != basisPointsTotal {
		return fmt.Errorf("bucket percents total %.2f, want 100.00", fromBasisPoints(totalBP))
	}
	return nil
}
