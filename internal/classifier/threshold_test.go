package classifier

import (
	"testing"

	"github.com/paritylens/paritylens/internal/dataset"
)

func TestScoreThresholdCanonicalCut(t *testing.T) {
	tests := []struct {
		name   string
		decile int
		want   bool
	}{
		{"lowest decile", 1, false},
		{"top of low band", 4, false},
		{"first positive decile", 5, true},
		{"middle band", 7, true},
		{"highest decile", 10, true},
	}

	policy := NewScoreThreshold()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Predict(dataset.Screening{ID: 1, DecileScore: tt.decile})
			if err != nil {
				t.Fatalf("Predict() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Predict(decile=%d) = %v, want %v", tt.decile, got, tt.want)
			}
		})
	}
}

func TestScoreThresholdRejectsOutOfRangeDeciles(t *testing.T) {
	policy := NewScoreThreshold()
	for _, decile := range []int{0, -3, 11} {
		if _, err := policy.Predict(dataset.Screening{ID: 2, DecileScore: decile}); err == nil {
			t.Errorf("Predict(decile=%d) should fail, deciles run 1 through 10", decile)
		}
	}
}

func TestFromLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    bool
		wantErr bool
	}{
		{LabelLow, false, false},
		{LabelMedium, true, false},
		{LabelHigh, true, false},
		{"N/A", false, true},
		{"low", false, true}, // labels are case-sensitive as published
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := FromLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FromLabel(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestDecileAndLabelFormsAgree(t *testing.T) {
	// Published pairing: deciles 1-4 are Low, 5-7 Medium, 8-10 High. The
	// canonical threshold must make the same call through either form.
	labelFor := func(decile int) string {
		switch {
		case decile < 5:
			return LabelLow
		case decile < 8:
			return LabelMedium
		default:
			return LabelHigh
		}
	}

	policy := NewScoreThreshold()
	for decile := 1; decile <= 10; decile++ {
		fromDecile, err := policy.Predict(dataset.Screening{ID: decile, DecileScore: decile})
		if err != nil {
			t.Fatalf("Predict(decile=%d) error: %v", decile, err)
		}
		fromLabel, err := FromLabel(labelFor(decile))
		if err != nil {
			t.Fatalf("FromLabel error: %v", err)
		}
		if fromDecile != fromLabel {
			t.Errorf("decile %d: threshold says %v, label %q says %v", decile, fromDecile, labelFor(decile), fromLabel)
		}
	}
}

func TestCustomCutMovesTheBoundary(t *testing.T) {
	policy := ScoreThreshold{MinPositiveDecile: 8}
	tests := []struct {
		decile int
		want   bool
	}{
		{7, false},
		{8, true},
	}
	for _, tt := range tests {
		got, err := policy.Predict(dataset.Screening{ID: 3, DecileScore: tt.decile})
		if err != nil {
			t.Fatalf("Predict() error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Predict(decile=%d) = %v, want %v under cut 8", tt.decile, got, tt.want)
		}
	}
}
