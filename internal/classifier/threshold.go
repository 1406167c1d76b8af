package classifier

import (
	"fmt"

	"github.com/paritylens/paritylens/internal/dataset"
)

// Trichotomous score labels as published.
const (
	LabelLow    = "Low"
	LabelMedium = "Medium"
	LabelHigh   = "High"
)

// ScoreThreshold applies the canonical COMPAS cut: deciles of
// MinPositiveDecile and above are called high risk. With the default cut of 5
// this is exactly the published label split {Medium, High} positive, Low
// negative, the convention comparative analyses of these scores rely on.
// Reference: docs/METHODOLOGY.md §3 (threshold policy).
type ScoreThreshold struct {
	MinPositiveDecile int
}

// NewScoreThreshold returns the canonical policy (decile >= 5 positive).
func NewScoreThreshold() ScoreThreshold {
	return ScoreThreshold{MinPositiveDecile: 5}
}

func (t ScoreThreshold) Name() string {
	return fmt.Sprintf("decile>=%d", t.MinPositiveDecile)
}

// Predict thresholds the row's decile score. Deciles run 1 through 10;
// anything else is a data fault, not a negative call.
func (t ScoreThreshold) Predict(s dataset.Screening) (bool, error) {
	if s.DecileScore < 1 || s.DecileScore > 10 {
		return false, fmt.Errorf("decile score %d out of range [1,10] for screening %d", s.DecileScore, s.ID)
	}
	return s.DecileScore >= t.MinPositiveDecile, nil
}

// FromLabel maps a trichotomous score label to the binary call. Under the
// canonical cut this must agree with Predict on every validly scored row.
func FromLabel(label string) (bool, error) {
	switch label {
	case LabelLow:
		return false, nil
	case LabelMedium, LabelHigh:
		return true, nil
	default:
		return false, fmt.Errorf("unknown score label %q", label)
	}
}
