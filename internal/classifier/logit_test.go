package classifier

import (
	"math"
	"testing"

	"github.com/paritylens/paritylens/internal/dataset"
)

func referenceSubject() dataset.Screening {
	return dataset.Screening{
		ID:           1,
		Sex:          "Male",
		AgeCategory:  ageMiddle,
		ChargeDegree: "M",
	}
}

func TestLogisticProbabilityMatchesSigmoid(t *testing.T) {
	m := DefaultLogisticModel()
	s := referenceSubject()
	s.Sex = "Female"
	s.AgeCategory = ageUnder25
	s.ChargeDegree = "F"
	s.PriorsCount = 3

	linear := m.Intercept + m.Female + m.Under25 + m.Felony + 3*m.PerPrior
	want := 1.0 / (1.0 + math.Exp(-linear))

	got, err := m.Probability(s)
	if err != nil {
		t.Fatalf("Probability() error: %v", err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("probability = %v, want %v", got, want)
	}
}

func TestLogisticMonotonicInPriors(t *testing.T) {
	m := DefaultLogisticModel()
	s := referenceSubject()

	prev := -1.0
	for priors := 0; priors <= 20; priors += 5 {
		s.PriorsCount = priors
		p, err := m.Probability(s)
		if err != nil {
			t.Fatalf("Probability() error: %v", err)
		}
		if p <= prev {
			t.Fatalf("probability not increasing in priors: p(%d)=%v after %v", priors, p, prev)
		}
		if p <= 0 || p >= 1 {
			t.Fatalf("probability %v outside (0,1)", p)
		}
		prev = p
	}
}

func TestLogisticCutIsInclusive(t *testing.T) {
	// All-zero weights put every subject exactly at probability 0.5.
	m := LogisticModel{Cut: 0.5}
	got, err := m.Predict(referenceSubject())
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if !got {
		t.Error("probability equal to the cut should be called positive")
	}

	m.Cut = math.Nextafter(0.5, 1)
	got, err = m.Predict(referenceSubject())
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if got {
		t.Error("probability below the cut should be called negative")
	}
}

func TestLogisticRejectsUnknownAgeCategory(t *testing.T) {
	m := DefaultLogisticModel()
	s := referenceSubject()
	s.AgeCategory = "18 to 24"

	if _, err := m.Probability(s); err == nil {
		t.Error("unknown age bucket must fail instead of silently using the reference bucket")
	}
}

func TestLogisticNameCarriesCut(t *testing.T) {
	m := DefaultLogisticModel()
	if got, want := m.Name(), "logit(cut=0.50)"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}
