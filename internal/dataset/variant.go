package dataset

import "fmt"

// Variant selects which published dataset an analysis runs over: the general
// two-year recidivism scores or the violent-recidivism subset. The variant is
// an explicit parameter to loading, never ambient mode state, because it
// changes both the source file and the score columns that feed the
// classifier.
type Variant string

const (
	// VariantGeneral is the two-year general recidivism dataset.
	VariantGeneral Variant = "general"
	// VariantViolent is the two-year violent recidivism dataset.
	VariantViolent Variant = "violent"
)

// ParseVariant validates a user-supplied variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantGeneral, VariantViolent:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown dataset variant %q (want %q or %q)", s, VariantGeneral, VariantViolent)
	}
}

// FileName returns the published CSV file name for the variant.
func (v Variant) FileName() string {
	if v == VariantViolent {
		return "compas-scores-two-years-violent.csv"
	}
	return "compas-scores-two-years.csv"
}

// DecileColumn returns the risk-decile column the variant scores with.
func (v Variant) DecileColumn() string {
	if v == VariantViolent {
		return "v_decile_score"
	}
	return "decile_score"
}

// ScoreTextColumn returns the trichotomous score-label column for the
// variant.
func (v Variant) ScoreTextColumn() string {
	if v == VariantViolent {
		return "v_score_text"
	}
	return "score_text"
}
