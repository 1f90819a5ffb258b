// Package scoring derives the donor-facing signals shown in the UI from raw
// Amal evaluation scores. All derivations are deterministic lookup tables so
// the same evaluation always renders the same way.
package scoring

import "github.com/uabbasi/good-measure-giving/internal/types"

// Signal is the qualitative band for a 0-10 dimension score.
type Signal string

// Dimension signals, strongest first.
const (
	SignalStrong       Signal = "strong"
	SignalModerate     Signal = "moderate"
	SignalLimited      Signal = "limited"
	SignalInsufficient Signal = "insufficient"
)

// ConfidenceBand is the qualitative band for a 0-1 confidence score.
type ConfidenceBand string

// Confidence bands.
const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// Grade is the composite letter grade for an evaluation.
type Grade string

// Letter grades.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Threshold constants. All are inclusive lower bounds.
const (
	// Dimension score bands (0-10 scale).
	StrongThreshold   = 7.5
	ModerateThreshold = 5.0
	LimitedThreshold  = 2.5

	// Confidence bands (0-1 scale).
	HighConfidenceThreshold   = 0.75
	MediumConfidenceThreshold = 0.45

	// Composite grade bands over the mean of impact and alignment.
	GradeAThreshold = 8.0
	GradeBThreshold = 6.5
	GradeCThreshold = 5.0

	// Recommendation gate.
	RecommendedDimensionMin = 7.0
)

// DimensionSignal maps a 0-10 dimension score to its signal band.
// A missing score is insufficient evidence.
func DimensionSignal(score *float64) Signal {
	if score == nil {
		return SignalInsufficient
	}
	switch s := *score; {
	case s >= StrongThreshold:
		return SignalStrong
	case s >= ModerateThreshold:
		return SignalModerate
	case s >= LimitedThreshold:
		return SignalLimited
	default:
		return SignalInsufficient
	}
}

// Confidence maps a 0-1 confidence score to its band. Missing confidence is
// treated as low.
func Confidence(c *float64) ConfidenceBand {
	if c == nil {
		return ConfidenceLow
	}
	switch v := *c; {
	case v >= HighConfidenceThreshold:
		return ConfidenceHigh
	case v >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// EffectiveScores returns the evaluation's dimension scores with the legacy
// schema v1 fallback applied: records carrying only the deprecated composite
// Score map it onto both impact and alignment.
func EffectiveScores(eval *types.AmalEvaluation) types.EvaluationScores {
	if eval == nil {
		return types.EvaluationScores{}
	}
	if eval.Scores != nil {
		return *eval.Scores
	}
	if eval.Score != nil {
		legacy := *eval.Score
		return types.EvaluationScores{Impact: &legacy, Alignment: &legacy}
	}
	return types.EvaluationScores{}
}

// EvaluationGrade derives the composite letter grade: the mean of impact and
// alignment mapped onto grade bands, capped at C when confidence is low.
// An evaluation with neither dimension scored grades D.
func EvaluationGrade(eval *types.AmalEvaluation) Grade {
	scores := EffectiveScores(eval)
	if scores.Impact == nil && scores.Alignment == nil {
		return GradeD
	}

	var sum float64
	var n int
	if scores.Impact != nil {
		sum += *scores.Impact
		n++
	}
	if scores.Alignment != nil {
		sum += *scores.Alignment
		n++
	}
	mean := sum / float64(n)

	var grade Grade
	switch {
	case mean >= GradeAThreshold:
		grade = GradeA
	case mean >= GradeBThreshold:
		grade = GradeB
	case mean >= GradeCThreshold:
		grade = GradeC
	default:
		grade = GradeD
	}

	if Confidence(scores.Confidence) == ConfidenceLow && grade < GradeC {
		// Grade ordering is lexical: "A" < "B" < "C".
		grade = GradeC
	}
	return grade
}

// Recommended reports whether the evaluation clears the recommendation gate:
// both dimensions at or above the minimum and confidence not low.
func Recommended(eval *types.AmalEvaluation) bool {
	scores := EffectiveScores(eval)
	if scores.Impact == nil || scores.Alignment == nil {
		return false
	}
	if *scores.Impact < RecommendedDimensionMin || *scores.Alignment < RecommendedDimensionMin {
		return false
	}
	return Confidence(scores.Confidence) != ConfidenceLow
}
