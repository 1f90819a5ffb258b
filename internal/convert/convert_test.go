package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/schemas"
)

// baseRecord returns a schema-valid raw pipeline record that the individual
// tests mutate.
func baseRecord() map[string]any {
	return map[string]any{
		"schema_version": 2,
		"ein":            "13-1837418",
		"name":           "  Direct Relief ",
		"also_known_as":  []any{"Direct Relief International", "  "},
		"mission":        "Improve  the health\nand lives of people",
		"website":        "https://www.directrelief.org",
		"logo_url":       "https://www.directrelief.org/logo.png",
		"causes":         []any{"Health", " Disaster Relief "},
		"country":        "USA",
		"city":           "Santa Barbara",
		"state":          "CA",
		"founded_year":   1948,
		"financials": map[string]any{
			"fiscal_year":           2024,
			"total_revenue":         2213456789.49,
			"total_expenses":        2100000000.51,
			"program_expense_ratio": 0.96,
		},
		"evaluated_at": "2026-05-01T00:00:00Z",
		"scores": map[string]any{
			"impact":     8.4,
			"alignment":  7.9,
			"confidence": 0.82,
		},
		"narratives": map[string]any{
			"summary": "Strong  operational\ntrack record [1].",
		},
		"sources": []any{
			map[string]any{
				"index": 1,
				"title": "Direct Relief",
				"url":   "https://www.directrelief.org/about",
				"claim": "operational track record",
				"kind":  "website",
			},
		},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestConvertCanonicalizesProfile(t *testing.T) {
	profile, err := Convert(mustJSON(t, baseRecord()))
	require.NoError(t, err)

	assert.Equal(t, "131837418", profile.EIN)
	assert.Equal(t, "Direct Relief", profile.Name)
	assert.Equal(t, []string{"Direct Relief International"}, profile.AlsoKnownAs)
	assert.Equal(t, "Improve the health and lives of people", profile.Mission)
	assert.Equal(t, []string{"Health", "Disaster Relief"}, profile.Causes)
	assert.Equal(t, 1948, profile.FoundedYear)
	assert.Equal(t, 2, profile.SchemaVersion)

	require.NotNil(t, profile.Financials)
	assert.Equal(t, int64(2213456789), profile.Financials.TotalRevenue)
	assert.Equal(t, int64(2100000001), profile.Financials.TotalExpenses)
	assert.InDelta(t, 0.96, profile.Financials.ProgramExpenseRatio, 1e-9)

	require.NotNil(t, profile.Evaluation)
	require.NotNil(t, profile.Evaluation.Narratives)
	assert.Equal(t, "Strong operational track record [1].", profile.Evaluation.Narratives.Summary)
	require.NotNil(t, profile.Evaluation.Scores)
	assert.Equal(t, 8.4, *profile.Evaluation.Scores.Impact)
}

func TestConvertDropsInvalidSourcesKeepingNumbers(t *testing.T) {
	record := baseRecord()
	record["sources"] = []any{
		map[string]any{"index": 1, "url": "https://example.org/a", "kind": "website"},
		map[string]any{"index": 2, "url": "not a url"},
		map[string]any{"index": 3, "url": "https://example.org/c", "kind": "news"},
	}

	profile, err := Convert(mustJSON(t, record))
	require.NoError(t, err)

	sources := profile.Evaluation.Sources
	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].Index)
	assert.Equal(t, "https://example.org/a", sources[0].URL)
	assert.Equal(t, 3, sources[1].Index)
	assert.Equal(t, "https://example.org/c", sources[1].URL)
}

func TestConvertNumbersSourcesByPosition(t *testing.T) {
	record := baseRecord()
	record["sources"] = []any{
		map[string]any{"url": "https://example.org/a"},
		map[string]any{"url": "ftp://example.org/b"},
		map[string]any{"url": "https://example.org/c"},
	}

	profile, err := Convert(mustJSON(t, record))
	require.NoError(t, err)

	sources := profile.Evaluation.Sources
	require.Len(t, sources, 2)
	assert.Equal(t, 1, sources[0].Index)
	assert.Equal(t, 3, sources[1].Index)
}

func TestConvertMapsSourceKinds(t *testing.T) {
	record := baseRecord()
	record["sources"] = []any{
		map[string]any{"index": 1, "url": "https://example.org/a", "kind": "annual_report"},
		map[string]any{"index": 2, "url": "https://example.org/b", "kind": "registry"},
		map[string]any{"index": 3, "url": "https://example.org/c"},
	}

	profile, err := Convert(mustJSON(t, record))
	require.NoError(t, err)

	sources := profile.Evaluation.Sources
	require.Len(t, sources, 3)
	assert.Equal(t, "annualReport", sources[0].Kind)
	assert.Equal(t, "registry", sources[1].Kind)
	assert.Equal(t, "", sources[2].Kind)
}

func TestConvertUpgradesHomepageCitations(t *testing.T) {
	record := baseRecord()
	record["sources"] = []any{
		map[string]any{
			"index": 1,
			"url":   "https://example.org",
			"claim": "malaria net distribution program",
			"kind":  "website",
		},
	}
	record["results"] = map[string]any{
		"programs": []any{
			map[string]any{
				"name":  "Malaria Prevention",
				"links": []any{"https://example.org/programs/malaria-nets"},
			},
		},
	}

	profile, err := Convert(mustJSON(t, record))
	require.NoError(t, err)

	sources := profile.Evaluation.Sources
	require.Len(t, sources, 1)
	assert.Equal(t, "https://example.org/programs/malaria-nets", sources[0].URL)
}

func TestConvertLegacyScoreRecord(t *testing.T) {
	record := baseRecord()
	record["schema_version"] = 1
	record["score"] = 8.2
	delete(record, "scores")

	profile, err := Convert(mustJSON(t, record))
	require.NoError(t, err)

	require.NotNil(t, profile.Evaluation.Score)
	assert.Equal(t, 8.2, *profile.Evaluation.Score)
	assert.Nil(t, profile.Evaluation.Scores)

	// Legacy records carry no confidence, so the grade caps at C and the
	// charity is never recommended.
	summary := Summarize(profile)
	assert.Equal(t, "strong", summary.ImpactSignal)
	assert.Equal(t, "low", summary.ConfidenceBand)
	assert.Equal(t, "C", summary.Grade)
	assert.False(t, summary.Recommended)
}

func TestConvertRejectsInvalidRecord(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing name", func(r map[string]any) { delete(r, "name") }},
		{"bad ein", func(r map[string]any) { r["ein"] = "12-34567" }},
		{"confidence out of range", func(r map[string]any) {
			r["scores"] = map[string]any{"confidence": 1.5}
		}},
		{"unknown source kind", func(r map[string]any) {
			r["sources"] = []any{map[string]any{"url": "https://example.org", "kind": "blog"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := baseRecord()
			tt.mutate(record)

			_, err := Convert(mustJSON(t, record))
			require.Error(t, err)
			var verr *schemas.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSummarize(t *testing.T) {
	profile, err := Convert(mustJSON(t, baseRecord()))
	require.NoError(t, err)

	summary := Summarize(profile)
	assert.Equal(t, "131837418", summary.EIN)
	assert.Equal(t, "Direct Relief", summary.Name)
	assert.Equal(t, "strong", summary.ImpactSignal)
	assert.Equal(t, "high", summary.ConfidenceBand)
	assert.Equal(t, "A", summary.Grade)
	assert.True(t, summary.Recommended)
}
