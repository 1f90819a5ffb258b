package allocation

import (
	"github.com/google/uuid"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

// Report summarizes giving progress against a plan for one year.
type Report struct {
	Year              int              `json:"year"`
	TargetCents       int64            `json:"targetCents"`
	DonatedCents      int64            `json:"donatedCents"`
	RemainingCents    int64            `json:"remainingCents"`
	UnattributedCents int64            `json:"unattributedCents"`
	Buckets           []BucketProgress `json:"buckets"`
}

// BucketProgress is one bucket's donated and remaining totals.
type BucketProgress struct {
	BucketID       uuid.UUID         `json:"bucketId"`
	Name           string            `json:"name"`
	TargetCents    int64             `json:"targetCents"`
	DonatedCents   int64             `json:"donatedCents"`
	RemainingCents int64             `json:"remainingCents"`
	Charities      []CharityProgress `json:"charities,omitempty"`
}

// CharityProgress is one charity sub-target's donated and remaining totals.
type CharityProgress struct {
	EIN            string `json:"ein"`
	TargetCents    int64  `json:"targetCents"`
	DonatedCents   int64  `json:"donatedCents"`
	RemainingCents int64  `json:"remainingCents"`
}

// Progress totals the year's donations against a plan. A donation counts
// toward a bucket when it carries that bucket's ID, or when its EIN is a
// sub-target of exactly one bucket; everything else lands in the plan-level
// unattributed total. Remaining amounts floor at zero.
func Progress(p types.Plan, donations []types.Donation, year int) Report {
	report := Report{
		Year:        year,
		TargetCents: p.TargetCents,
		Buckets:     make([]BucketProgress, len(p.Buckets)),
	}

	// bucketByID maps bucket IDs to their report slot; einOwner maps each
	// sub-target EIN to its owning bucket, or -1 when two buckets claim it.
	bucketByID := make(map[uuid.UUID]int, len(p.Buckets))
	einOwner := make(map[string]int)
	for i, b := range p.Buckets {
		bucketByID[b.ID] = i
		report.Buckets[i] = BucketProgress{
			BucketID:    b.ID,
			Name:        b.Name,
			TargetCents: b.AmountCents,
			Charities:   make([]CharityProgress, len(b.CharityTargets)),
		}
		for j, ct := range b.CharityTargets {
			report.Buckets[i].Charities[j] = CharityProgress{
				EIN:         ct.EIN,
				TargetCents: ct.AmountCents,
			}
			if _, claimed := einOwner[ct.EIN]; claimed {
				einOwner[ct.EIN] = -1
			} else {
				einOwner[ct.EIN] = i
			}
		}
	}

	for _, d := range donations {
		if d.DonatedOn.Year() != year {
			continue
		}
		report.DonatedCents += d.AmountCents

		bucket := -1
		switch {
		case d.BucketID != nil:
			if i, ok := bucketByID[*d.BucketID]; ok {
				bucket = i
			}
		case d.EIN != "":
			if i, ok := einOwner[d.EIN]; ok && i >= 0 {
				bucket = i
			}
		}
		if bucket < 0 {
			report.UnattributedCents += d.AmountCents
			continue
		}

		bp := &report.Buckets[bucket]
		bp.DonatedCents += d.AmountCents
		if d.EIN != "" {
			for j := range bp.Charities {
				if bp.Charities[j].EIN == d.EIN {
					bp.Charities[j].DonatedCents += d.AmountCents
					break
				}
			}
		}
	}

	report.RemainingCents = floorZero(p.TargetCents - report.DonatedCents)
	for i := range report.Buckets {
		bp := &report.Buckets[i]
		bp.RemainingCents = floorZero(bp.TargetCents - bp.DonatedCents)
		for j := range bp.Charities {
			cp := &bp.Charities[j]
			cp.RemainingCents = floorZero(cp.TargetCents - cp.DonatedCents)
		}
	}
	return report
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
