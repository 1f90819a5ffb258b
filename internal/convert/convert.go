// Package convert builds the public charity data dir out of raw
// evaluation-pipeline records: one charities/charity-{ein}.json per charity
// plus the charities.json summary index. Raw records are snake_case; the
// published files are camelCase.
package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/uabbasi/good-measure-giving/internal/citations"
	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/schemas"
	"github.com/uabbasi/good-measure-giving/internal/scoring"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// rawRecord is the snake_case shape emitted by the evaluation pipeline.
type rawRecord struct {
	SchemaVersion int            `json:"schema_version"`
	EIN           string         `json:"ein"`
	Name          string         `json:"name"`
	AlsoKnownAs   []string       `json:"also_known_as"`
	Mission       string         `json:"mission"`
	Website       string         `json:"website"`
	LogoURL       string         `json:"logo_url"`
	Causes        []string       `json:"causes"`
	Country       string         `json:"country"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	FoundedYear   int            `json:"founded_year"`
	Financials    *rawFinancials `json:"financials"`
	EvaluatedAt   string         `json:"evaluated_at"`
	Score         *float64       `json:"score"`
	Scores        *rawScores     `json:"scores"`
	Narratives    *rawNarratives `json:"narratives"`
	Sources       []rawSource    `json:"sources"`
	Results       *rawResults    `json:"results"`
}

type rawFinancials struct {
	FiscalYear          int     `json:"fiscal_year"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalExpenses       float64 `json:"total_expenses"`
	ProgramExpenseRatio float64 `json:"program_expense_ratio"`
}

type rawScores struct {
	Impact     *float64 `json:"impact"`
	Alignment  *float64 `json:"alignment"`
	Confidence *float64 `json:"confidence"`
}

type rawNarratives struct {
	Summary     string `json:"summary"`
	Strengths   string `json:"strengths"`
	Concerns    string `json:"concerns"`
	Methodology string `json:"methodology"`
}

type rawSource struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Claim string `json:"claim"`
	Kind  string `json:"kind"`
}

type rawResults struct {
	Programs  []rawProgram        `json:"programs"`
	Financial *rawFinancialReview `json:"financial"`
	Registry  *rawRegistry        `json:"registry"`
	Extra     map[string]any      `json:"extra"`
}

type rawProgram struct {
	Name    string         `json:"name"`
	Summary string         `json:"summary"`
	Links   []string       `json:"links"`
	Details map[string]any `json:"details"`
}

type rawFinancialReview struct {
	Summary    string         `json:"summary"`
	SourceURLs []string       `json:"source_urls"`
	Details    map[string]any `json:"details"`
}

type rawRegistry struct {
	IRSListingURL  string   `json:"irs_listing_url"`
	StateListings  []string `json:"state_listings"`
	LastVerifiedAt string   `json:"last_verified_at"`
}

// Convert validates and transforms one raw pipeline record into its public
// profile: canonical EIN, collapsed narrative whitespace, sources with
// unparseable URLs dropped (numbering preserved so inline [n] tags keep
// their meaning), source kinds mapped to the public vocabulary, and citation
// URLs upgraded to deep links found in the nested results.
func Convert(data []byte) (*types.CharityProfile, error) {
	if err := schemas.Validate(schemas.RawEvaluation, data); err != nil {
		return nil, err
	}

	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	ein, err := types.NormalizeEIN(raw.EIN)
	if err != nil {
		return nil, err
	}

	profile := &types.CharityProfile{
		EIN:           ein,
		Name:          strings.TrimSpace(raw.Name),
		AlsoKnownAs:   trimAll(raw.AlsoKnownAs),
		Mission:       collapseWhitespace(raw.Mission),
		Website:       strings.TrimSpace(raw.Website),
		LogoURL:       strings.TrimSpace(raw.LogoURL),
		Causes:        trimAll(raw.Causes),
		Country:       strings.TrimSpace(raw.Country),
		City:          strings.TrimSpace(raw.City),
		State:         strings.TrimSpace(raw.State),
		FoundedYear:   raw.FoundedYear,
		SchemaVersion: raw.SchemaVersion,
	}
	if raw.Financials != nil {
		profile.Financials = &types.Financials{
			FiscalYear:          raw.Financials.FiscalYear,
			TotalRevenue:        int64(math.Round(raw.Financials.TotalRevenue)),
			TotalExpenses:       int64(math.Round(raw.Financials.TotalExpenses)),
			ProgramExpenseRatio: raw.Financials.ProgramExpenseRatio,
		}
	}

	eval := &types.AmalEvaluation{
		SchemaVersion: raw.SchemaVersion,
		EvaluatedAt:   strings.TrimSpace(raw.EvaluatedAt),
		Score:         raw.Score,
	}
	if raw.Scores != nil {
		eval.Scores = &types.EvaluationScores{
			Impact:     raw.Scores.Impact,
			Alignment:  raw.Scores.Alignment,
			Confidence: raw.Scores.Confidence,
		}
	}
	if raw.Narratives != nil {
		eval.Narratives = &types.Narratives{
			Summary:     collapseWhitespace(raw.Narratives.Summary),
			Strengths:   collapseWhitespace(raw.Narratives.Strengths),
			Concerns:    collapseWhitespace(raw.Narratives.Concerns),
			Methodology: collapseWhitespace(raw.Narratives.Methodology),
		}
	}
	eval.Results = convertResults(raw.Results)
	eval.Sources = convertSources(raw.Sources)

	resolved, upgraded := citations.ResolveAll(eval)
	eval.Sources = resolved
	metrics.CitationsUpgraded.Add(float64(upgraded))
	profile.Evaluation = eval

	return profile, nil
}

// convertSources keeps each source's original 1-based numbering even when
// earlier entries are dropped, so narrative tags still point at the right
// citation.
func convertSources(sources []rawSource) []types.Citation {
	var out []types.Citation
	for i, s := range sources {
		index := s.Index
		if index == 0 {
			index = i + 1
		}
		if !validURL(s.URL) {
			continue
		}
		out = append(out, types.Citation{
			Index: index,
			Title: strings.TrimSpace(s.Title),
			URL:   strings.TrimSpace(s.URL),
			Claim: collapseWhitespace(s.Claim),
			Kind:  mapSourceKind(s.Kind),
		})
	}
	return out
}

func convertResults(raw *rawResults) *types.EvaluationResults {
	if raw == nil {
		return nil
	}
	out := &types.EvaluationResults{Extra: raw.Extra}
	for _, p := range raw.Programs {
		out.Programs = append(out.Programs, types.ProgramAnalysis{
			Name:    strings.TrimSpace(p.Name),
			Summary: collapseWhitespace(p.Summary),
			Links:   trimAll(p.Links),
			Details: p.Details,
		})
	}
	if raw.Financial != nil {
		out.Financial = &types.FinancialReview{
			Summary:    collapseWhitespace(raw.Financial.Summary),
			SourceURLs: trimAll(raw.Financial.SourceURLs),
			Details:    raw.Financial.Details,
		}
	}
	if raw.Registry != nil {
		out.Registry = &types.RegistryRecord{
			IRSListingURL:  strings.TrimSpace(raw.Registry.IRSListingURL),
			StateListings:  trimAll(raw.Registry.StateListings),
			LastVerifiedAt: strings.TrimSpace(raw.Registry.LastVerifiedAt),
		}
	}
	return out
}

// Summarize projects a profile onto its catalog-list entry, deriving the
// donor-facing signals from the evaluation scores.
func Summarize(p *types.CharityProfile) types.CharitySummary {
	scores := scoring.EffectiveScores(p.Evaluation)
	return types.CharitySummary{
		EIN:            p.EIN,
		Name:           p.Name,
		Mission:        p.Mission,
		Causes:         p.Causes,
		Country:        p.Country,
		LogoURL:        p.LogoURL,
		ImpactSignal:   string(scoring.DimensionSignal(scores.Impact)),
		ConfidenceBand: string(scoring.Confidence(scores.Confidence)),
		Grade:          string(scoring.EvaluationGrade(p.Evaluation)),
		Recommended:    scoring.Recommended(p.Evaluation),
	}
}

func mapSourceKind(kind string) string {
	switch kind {
	case "annual_report":
		return types.SourceKindAnnualReport
	case "":
		return ""
	default:
		return kind
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
