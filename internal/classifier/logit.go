package classifier

import (
	"fmt"
	"math"

	"github.com/paritylens/paritylens/internal/dataset"
)

// Age buckets as published in the age_cat column.
const (
	ageUnder25 = "Less than 25"
	ageMiddle  = "25 - 45"
	ageOver45  = "Greater than 45"
)

// LogisticModel is an already-estimated logistic regression over the
// demographic and criminal-history features. It is inference only: the
// coefficients are injected from configuration (or the recorded defaults)
// and are never fitted here. Weights are named per feature so a reordered
// coefficient vector cannot silently re-wire the model.
type LogisticModel struct {
	Intercept float64 `json:"intercept" yaml:"intercept" mapstructure:"intercept"`

	// Indicator weights. The reference subject is a male aged 25-45
	// charged with a misdemeanor.
	Female   float64 `json:"female" yaml:"female" mapstructure:"female"`
	Under25  float64 `json:"under_25" yaml:"under_25" mapstructure:"under_25"`
	Over45   float64 `json:"over_45" yaml:"over_45" mapstructure:"over_45"`
	Felony   float64 `json:"felony" yaml:"felony" mapstructure:"felony"`
	PerPrior float64 `json:"per_prior" yaml:"per_prior" mapstructure:"per_prior"`

	// Cut is the probability at and above which the call is high risk.
	Cut float64 `json:"cut" yaml:"cut" mapstructure:"cut"`
}

// DefaultLogisticModel returns coefficients estimated offline on the general
// two-year dataset, with the conventional 0.5 probability cut.
func DefaultLogisticModel() LogisticModel {
	return LogisticModel{
		Intercept: -0.859,
		Female:    -0.421,
		Under25:   0.712,
		Over45:    -0.946,
		Felony:    0.178,
		PerPrior:  0.169,
		Cut:       0.5,
	}
}

func (m LogisticModel) Name() string {
	return fmt.Sprintf("logit(cut=%.2f)", m.Cut)
}

// Probability returns the modeled chance of recidivism for one row.
func (m LogisticModel) Probability(s dataset.Screening) (float64, error) {
	score := m.Intercept + m.PerPrior*float64(s.PriorsCount)
	if s.Sex == "Female" {
		score += m.Female
	}
	switch s.AgeCategory {
	case ageUnder25:
		score += m.Under25
	case ageOver45:
		score += m.Over45
	case ageMiddle:
		// reference bucket
	default:
		return 0, fmt.Errorf("unknown age category %q for screening %d", s.AgeCategory, s.ID)
	}
	if s.ChargeDegree == "F" {
		score += m.Felony
	}
	return sigmoid(score), nil
}

// Predict cuts the modeled probability at m.Cut (inclusive).
func (m LogisticModel) Predict(s dataset.Screening) (bool, error) {
	p, err := m.Probability(s)
	if err != nil {
		return false, err
	}
	return p >= m.Cut, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
