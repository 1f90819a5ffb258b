// Package types provides the shared data definitions for the Good Measure
// charity evaluation and giving-tracking service.
package types

import (
	"fmt"
	"strings"
)

// CharityProfile is the full public record for one charity, keyed by EIN.
// It is produced by the data conversion pipeline and served both as a static
// JSON file (data/charities/charity-{ein}.json) and through the REST API.
type CharityProfile struct {
	EIN           string          `json:"ein"`
	Name          string          `json:"name"`
	AlsoKnownAs   []string        `json:"alsoKnownAs,omitempty"`
	Mission       string          `json:"mission,omitempty"`
	Website       string          `json:"website,omitempty"`
	LogoURL       string          `json:"logoUrl,omitempty"`
	Causes        []string        `json:"causes,omitempty"`
	Country       string          `json:"country,omitempty"`
	City          string          `json:"city,omitempty"`
	State         string          `json:"state,omitempty"`
	FoundedYear   int             `json:"foundedYear,omitempty"`
	Financials    *Financials     `json:"financials,omitempty"`
	Evaluation    *AmalEvaluation `json:"evaluation,omitempty"`
	SchemaVersion int             `json:"schemaVersion,omitempty"`
}

// Financials is the summarized financial picture shown on a profile.
// Amounts are whole US dollars as reported in the charity's filings.
type Financials struct {
	FiscalYear          int     `json:"fiscalYear,omitempty"`
	TotalRevenue        int64   `json:"totalRevenue,omitempty"`
	TotalExpenses       int64   `json:"totalExpenses,omitempty"`
	ProgramExpenseRatio float64 `json:"programExpenseRatio,omitempty"`
}

// CharitySummary is the catalog-list projection of a profile, written to
// data/charities.json and returned by the list endpoint.
type CharitySummary struct {
	EIN            string   `json:"ein"`
	Name           string   `json:"name"`
	Mission        string   `json:"mission,omitempty"`
	Causes         []string `json:"causes,omitempty"`
	Country        string   `json:"country,omitempty"`
	LogoURL        string   `json:"logoUrl,omitempty"`
	ImpactSignal   string   `json:"impactSignal,omitempty"`
	ConfidenceBand string   `json:"confidenceBand,omitempty"`
	Grade          string   `json:"grade,omitempty"`
	Recommended    bool     `json:"recommended"`
}

// NormalizeEIN reduces an EIN to its canonical nine-digit form, accepting
// inputs with dashes, spaces, or surrounding whitespace. It returns an error
// when the input does not contain exactly nine digits.
func NormalizeEIN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '\t':
			// separators are dropped
		default:
			return "", fmt.Errorf("invalid EIN %q: unexpected character %q", raw, r)
		}
	}
	ein := b.String()
	if len(ein) != 9 {
		return "", fmt.Errorf("invalid EIN %q: want 9 digits, got %d", raw, len(ein))
	}
	return ein, nil
}

// FormatEIN renders a canonical EIN in the display form NN-NNNNNNN.
// Non-canonical inputs are returned unchanged.
func FormatEIN(ein string) string {
	if len(ein) != 9 {
		return ein
	}
	return ein[:2] + "-" + ein[2:]
}
