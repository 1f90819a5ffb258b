package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/types"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		citation   types.Citation
		candidates []string
		wantURL    string
	}{
		{
			name: "homepage upgraded to matching deep link",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "publishes annual impact reports",
			},
			candidates: []string{
				"https://example.org/reports/annual-impact-2024",
				"https://example.org/about",
			},
			wantURL: "https://example.org/reports/annual-impact-2024",
		},
		{
			name: "deep citation never rewritten",
			citation: types.Citation{
				URL:   "https://example.org/financials/990",
				Claim: "publishes annual impact reports",
			},
			candidates: []string{
				"https://example.org/reports/annual-impact-2024",
			},
			wantURL: "https://example.org/financials/990",
		},
		{
			name: "other host candidates ignored",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "publishes annual impact reports",
			},
			candidates: []string{
				"https://other.org/reports/annual-impact-2024",
			},
			wantURL: "https://example.org",
		},
		{
			name: "www prefix treated as same host",
			citation: types.Citation{
				URL:   "https://www.example.org/",
				Claim: "water program outcomes",
			},
			candidates: []string{
				"https://example.org/programs/water-outcomes",
			},
			wantURL: "https://example.org/programs/water-outcomes",
		},
		{
			name: "host casing ignored",
			citation: types.Citation{
				URL:   "https://Example.ORG",
				Claim: "water program outcomes",
			},
			candidates: []string{
				"https://example.org/programs/water-outcomes",
			},
			wantURL: "https://example.org/programs/water-outcomes",
		},
		{
			name: "higher overlap wins",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "audited financial statements 2024",
			},
			candidates: []string{
				"https://example.org/financial",
				"https://example.org/financial/audited-statements-2024",
			},
			wantURL: "https://example.org/financial/audited-statements-2024",
		},
		{
			name: "equal overlap prefers deeper path",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "governance policies",
			},
			candidates: []string{
				"https://example.org/governance",
				"https://example.org/about/governance",
			},
			wantURL: "https://example.org/about/governance",
		},
		{
			name: "equal depth prefers shorter url",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "volunteer training",
			},
			candidates: []string{
				"https://example.org/programs/volunteer-training-and-placement",
				"https://example.org/programs/volunteer-training",
			},
			wantURL: "https://example.org/programs/volunteer-training",
		},
		{
			name: "remaining ties break lexicographically",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "zakat distribution",
			},
			candidates: []string{
				"https://example.org/give/zakat-b",
				"https://example.org/give/zakat-a",
			},
			wantURL: "https://example.org/give/zakat-a",
		},
		{
			name: "fragment stripped query kept",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "form 990 filings",
			},
			candidates: []string{
				"https://example.org/filings/form-990?year=2024#section-3",
			},
			wantURL: "https://example.org/filings/form-990?year=2024",
		},
		{
			name: "no keyword overlap leaves homepage",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "board of directors",
			},
			candidates: []string{
				"https://example.org/programs/water",
			},
			wantURL: "https://example.org",
		},
		{
			name: "empty claim falls back to title",
			citation: types.Citation{
				URL:   "https://example.org",
				Title: "Annual Report 2024",
			},
			candidates: []string{
				"https://example.org/reports/annual-report-2024",
			},
			wantURL: "https://example.org/reports/annual-report-2024",
		},
		{
			name: "no candidates leaves citation alone",
			citation: types.Citation{
				URL:   "https://example.org",
				Claim: "publishes annual impact reports",
			},
			candidates: nil,
			wantURL:    "https://example.org",
		},
		{
			name: "unparseable citation url unchanged",
			citation: types.Citation{
				URL:   "://not-a-url",
				Claim: "anything",
			},
			candidates: []string{
				"https://example.org/reports/annual",
			},
			wantURL: "://not-a-url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.citation, tt.candidates)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.citation.Title, got.Title)
			assert.Equal(t, tt.citation.Claim, got.Claim)
			assert.Equal(t, tt.citation.Index, got.Index)
		})
	}
}

func TestCollectURLs(t *testing.T) {
	results := &types.EvaluationResults{
		Programs: []types.ProgramAnalysis{
			{
				Name:    "Clean Water",
				Summary: "Detailed at https://example.org/programs/water.",
				Links:   []string{"https://example.org/programs/water/wells"},
				Details: map[string]any{
					"sources": []any{"https://example.org/reports/water-2024"},
				},
			},
		},
		Financial: &types.FinancialReview{
			Summary:    "Audited statements at https://example.org/financials/audit.",
			SourceURLs: []string{"https://example.org/filings/form-990"},
			Details: map[string]any{
				"zz": "no links here",
				"aa": "nested https://example.org/financials/notes link",
			},
		},
		Registry: &types.RegistryRecord{
			IRSListingURL: "https://apps.irs.gov/app/eos/detail/123",
			StateListings: []string{"https://oag.ca.gov/charities/detail/456"},
		},
		Extra: map[string]any{
			"misc": "see https://example.org/programs/water for details",
		},
	}

	urls := CollectURLs(results)

	assert.Equal(t, []string{
		"https://example.org/programs/water",
		"https://example.org/programs/water/wells",
		"https://example.org/reports/water-2024",
		"https://example.org/financials/audit",
		"https://example.org/filings/form-990",
		"https://example.org/financials/notes",
		"https://apps.irs.gov/app/eos/detail/123",
		"https://oag.ca.gov/charities/detail/456",
	}, urls)
}

func TestCollectURLsNilResults(t *testing.T) {
	assert.Nil(t, CollectURLs(nil))
}

func TestCollectURLsTrimsPunctuation(t *testing.T) {
	results := &types.EvaluationResults{
		Extra: map[string]any{
			"note": "Listed at https://example.org/programs/water. More below.",
		},
	}
	urls := CollectURLs(results)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://example.org/programs/water", urls[0])
}

func TestResolveAll(t *testing.T) {
	eval := &types.AmalEvaluation{
		Sources: []types.Citation{
			{Index: 1, URL: "https://example.org", Claim: "annual impact reports"},
			{Index: 2, URL: "https://example.org/financials/audit", Claim: "audited statements"},
			{Index: 3, URL: "https://unrelated.org", Claim: "annual impact reports"},
		},
		Results: &types.EvaluationResults{
			Programs: []types.ProgramAnalysis{
				{Links: []string{"https://example.org/reports/annual-impact"}},
			},
		},
	}

	resolved, upgraded := ResolveAll(eval)

	require.Len(t, resolved, 3)
	assert.Equal(t, 1, upgraded)
	assert.Equal(t, "https://example.org/reports/annual-impact", resolved[0].URL)
	assert.Equal(t, "https://example.org/financials/audit", resolved[1].URL)
	assert.Equal(t, "https://unrelated.org", resolved[2].URL)

	// The evaluation itself keeps its original sources.
	assert.Equal(t, "https://example.org", eval.Sources[0].URL)
}

func TestResolveAllEmpty(t *testing.T) {
	resolved, upgraded := ResolveAll(nil)
	assert.Nil(t, resolved)
	assert.Zero(t, upgraded)

	resolved, upgraded = ResolveAll(&types.AmalEvaluation{})
	assert.Nil(t, resolved)
	assert.Zero(t, upgraded)
}
