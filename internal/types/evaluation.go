package types

// AmalEvaluation is the product's proprietary charity-scoring output, produced
// by an external evaluation pipeline and carried here as data. Fields are
// optional where older schema versions did not emit them; SchemaVersion 1
// records carried a single composite Score instead of per-dimension scores.
type AmalEvaluation struct {
	SchemaVersion int               `json:"schemaVersion"`
	EvaluatedAt   string            `json:"evaluatedAt,omitempty"` // RFC 3339 date
	Scores        *EvaluationScores `json:"scores,omitempty"`
	Narratives    *Narratives       `json:"narratives,omitempty"`
	Sources       []Citation        `json:"sources,omitempty"`
	Results       *EvaluationResults `json:"results,omitempty"`

	// Score is the deprecated schema v1 composite score (0-10). Converted
	// records map it onto the impact and alignment dimensions.
	Score *float64 `json:"score,omitempty"`
}

// EvaluationScores holds the per-dimension scores. Impact and Alignment are
// 0-10; Confidence is 0-1. Nil means the dimension was not scored.
type EvaluationScores struct {
	Impact     *float64 `json:"impact,omitempty"`
	Alignment  *float64 `json:"alignment,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Narratives are the AI-generated evaluation texts shown on a profile page.
// Each narrative may carry inline citation tags of the form [n] referring to
// the 1-based Sources index.
type Narratives struct {
	Summary     string `json:"summary,omitempty"`
	Strengths   string `json:"strengths,omitempty"`
	Concerns    string `json:"concerns,omitempty"`
	Methodology string `json:"methodology,omitempty"`
}

// Citation source kinds.
const (
	SourceKindWebsite      = "website"
	SourceKindAnnualReport = "annualReport"
	SourceKindRegistry     = "registry"
	SourceKindNews         = "news"
	SourceKindOther        = "other"
)

// Citation is one entry of an evaluation's source list. URL is frequently a
// homepage-level link as emitted by the pipeline; the citations package
// upgrades it to a deep link when the evaluation's nested results contain a
// better match for the claim.
type Citation struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
	Claim string `json:"claim,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// EvaluationResults carries the nested result objects from the pipeline.
// These are scanned for embedded URLs during citation resolution. Extra holds
// free-form pipeline additions that have no typed representation yet.
type EvaluationResults struct {
	Programs  []ProgramAnalysis `json:"programs,omitempty"`
	Financial *FinancialReview  `json:"financial,omitempty"`
	Registry  *RegistryRecord   `json:"registry,omitempty"`
	Extra     map[string]any    `json:"extra,omitempty"`
}

// ProgramAnalysis is the pipeline's assessment of one charity program.
type ProgramAnalysis struct {
	Name    string         `json:"name"`
	Summary string         `json:"summary,omitempty"`
	Links   []string       `json:"links,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// FinancialReview is the pipeline's review of the charity's filings.
type FinancialReview struct {
	Summary    string         `json:"summary,omitempty"`
	SourceURLs []string       `json:"sourceUrls,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// RegistryRecord points at the official registry entries backing the profile.
type RegistryRecord struct {
	IRSListingURL   string   `json:"irsListingUrl,omitempty"`
	StateListings   []string `json:"stateListings,omitempty"`
	LastVerifiedAt  string   `json:"lastVerifiedAt,omitempty"`
}
