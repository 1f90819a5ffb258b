// Package recap produces a short first-person summary of a user's giving
// year. The facts fed to the language model are assembled deterministically
// here; the model only phrases them.
package recap

import (
	"sort"

	"github.com/uabbasi/good-measure-giving/internal/allocation"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// topN caps the causes and charities named in a recap.
const topN = 3

// FactSheet holds everything the recap prompt may mention.
type FactSheet struct {
	Year          int
	DisplayName   string
	Currency      string
	TotalCents    int64
	DonationCount int
	ZakatCents    int64
	SadaqahCents  int64
	OtherCents    int64

	// Plan progress. PlanTargetCents is zero when no plan exists.
	PlanTargetCents int64
	RemainingCents  int64
	Buckets         []BucketFact

	TopCauses    []CauseFact
	TopCharities []CharityFact
}

// BucketFact is one giving bucket's progress.
type BucketFact struct {
	Name         string
	TargetCents  int64
	DonatedCents int64
}

// CauseFact is the amount attributed to one cause.
type CauseFact struct {
	Cause string
	Cents int64
}

// CharityFact is the amount given to one charity.
type CharityFact struct {
	Name  string
	Cents int64
}

// BuildFactSheet assembles the recap facts for one year. charityNames maps
// EINs to display names; gifts to charities outside the map are named by
// their formatted EIN. plan may be nil when the user has no plan that year.
func BuildFactSheet(year int, profile *types.UserProfile, plan *types.Plan, donations []types.Donation, charityNames map[string]string) FactSheet {
	currency := "USD"
	displayName := ""
	if profile != nil {
		if profile.Currency != "" {
			currency = profile.Currency
		}
		displayName = profile.DisplayName
	}

	summary := types.SummarizeDonations(donations, year, currency)

	facts := FactSheet{
		Year:         year,
		DisplayName:  displayName,
		Currency:     currency,
		TotalCents:   summary.TotalCents,
		ZakatCents:   summary.TotalByKind[types.KindZakat],
		SadaqahCents: summary.TotalByKind[types.KindSadaqah],
		OtherCents:   summary.TotalByKind[types.KindOther],
	}
	for _, n := range summary.CountByKind {
		facts.DonationCount += n
	}

	if plan != nil {
		report := allocation.Progress(*plan, donations, year)
		facts.PlanTargetCents = report.TargetCents
		facts.RemainingCents = report.RemainingCents
		causeTotals := make(map[string]int64)
		for i, bp := range report.Buckets {
			facts.Buckets = append(facts.Buckets, BucketFact{
				Name:         bp.Name,
				TargetCents:  bp.TargetCents,
				DonatedCents: bp.DonatedCents,
			})
			if bp.DonatedCents == 0 {
				continue
			}
			for _, cause := range plan.Buckets[i].Causes {
				causeTotals[cause] += bp.DonatedCents
			}
		}
		facts.TopCauses = topCauses(causeTotals)
	}

	facts.TopCharities = topCharities(summary.TotalByEIN, charityNames)
	return facts
}

// topCauses ranks causes by attributed cents, largest first, ties broken
// alphabetically so the sheet is stable.
func topCauses(totals map[string]int64) []CauseFact {
	out := make([]CauseFact, 0, len(totals))
	for cause, cents := range totals {
		out = append(out, CauseFact{Cause: cause, Cents: cents})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cents != out[j].Cents {
			return out[i].Cents > out[j].Cents
		}
		return out[i].Cause < out[j].Cause
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func topCharities(totals map[string]int64, names map[string]string) []CharityFact {
	type entry struct {
		ein   string
		cents int64
	}
	entries := make([]entry, 0, len(totals))
	for ein, cents := range totals {
		entries = append(entries, entry{ein, cents})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].cents != entries[j].cents {
			return entries[i].cents > entries[j].cents
		}
		return entries[i].ein < entries[j].ein
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}

	out := make([]CharityFact, 0, len(entries))
	for _, e := range entries {
		name := names[e.ein]
		if name == "" {
			name = types.FormatEIN(e.ein)
		}
		out = append(out, CharityFact{Name: name, Cents: e.cents})
	}
	return out
}
