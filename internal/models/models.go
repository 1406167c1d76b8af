// Package models holds the row and report types the storage, analysis and
// presentation layers exchange. Undefined rates travel as nil pointers so the
// zero-versus-undefined distinction survives databases and JSON unchanged.
package models

import (
	"time"

	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/fairness"
)

// AnalysisRun is one persisted evaluation: the configuration that produced
// it, the filter tally, and the overall confusion matrix.
type AnalysisRun struct {
	ID         string    `json:"id" db:"id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Variant    string    `json:"variant" db:"variant"`
	Classifier string    `json:"classifier" db:"classifier"`
	GroupField string    `json:"group_field" db:"group_field"`

	ChargeWindowDays    int `json:"charge_window_days" db:"charge_window_days"`
	RecordsRead         int `json:"records_read" db:"records_read"`
	RecordsKept         int `json:"records_kept" db:"records_kept"`
	ExcludedByWindow    int `json:"excluded_by_window" db:"excluded_by_window"`
	ExcludedByRecidFlag int `json:"excluded_by_recid_flag" db:"excluded_by_recid_flag"`
	ExcludedByTraffic   int `json:"excluded_by_traffic" db:"excluded_by_traffic"`
	ExcludedByScore     int `json:"excluded_by_score" db:"excluded_by_score"`

	TP int `json:"tp" db:"tp"`
	FP int `json:"fp" db:"fp"`
	TN int `json:"tn" db:"tn"`
	FN int `json:"fn" db:"fn"`
}

// Matrix returns the run's overall confusion matrix.
func (r AnalysisRun) Matrix() fairness.ConfusionMatrix {
	return fairness.ConfusionMatrix{TP: r.TP, FP: r.FP, TN: r.TN, FN: r.FN}
}

// Report derives the run's overall metrics.
func (r AnalysisRun) Report() fairness.Report {
	return fairness.Compute(r.Matrix())
}

// FilterStats reassembles the tally recorded with the run.
func (r AnalysisRun) FilterStats() dataset.FilterStats {
	return dataset.FilterStats{
		Read:                r.RecordsRead,
		Kept:                r.RecordsKept,
		ExcludedByWindow:    r.ExcludedByWindow,
		ExcludedByRecidFlag: r.ExcludedByRecidFlag,
		ExcludedByTraffic:   r.ExcludedByTraffic,
		ExcludedByScore:     r.ExcludedByScore,
	}
}

// GroupMetrics is the persisted evaluation of one demographic group within a
// run. Rate columns are nullable: nil means the rate was undefined for this
// group, never that it was zero.
type GroupMetrics struct {
	RunID   string `json:"run_id,omitempty" db:"run_id"`
	Group   string `json:"group" db:"group_name"`
	Records int    `json:"records" db:"records"`

	TP int `json:"tp" db:"tp"`
	FP int `json:"fp" db:"fp"`
	TN int `json:"tn" db:"tn"`
	FN int `json:"fn" db:"fn"`

	Accuracy *float64 `json:"accuracy" db:"accuracy"`
	PPV      *float64 `json:"ppv" db:"ppv"`
	FPR      *float64 `json:"fpr" db:"fpr"`
	FNR      *float64 `json:"fnr" db:"fnr"`
}

// NewGroupMetrics flattens one group's matrix and derived rates for
// persistence and display.
func NewGroupMetrics(runID, group string, cm fairness.ConfusionMatrix) GroupMetrics {
	rep := fairness.Compute(cm)
	return GroupMetrics{
		RunID:    runID,
		Group:    group,
		Records:  cm.Total(),
		TP:       cm.TP,
		FP:       cm.FP,
		TN:       cm.TN,
		FN:       cm.FN,
		Accuracy: RatePtr(rep.Accuracy),
		PPV:      RatePtr(rep.PPV),
		FPR:      RatePtr(rep.FPR),
		FNR:      RatePtr(rep.FNR),
	}
}

// Matrix returns the group's confusion matrix.
func (g GroupMetrics) Matrix() fairness.ConfusionMatrix {
	return fairness.ConfusionMatrix{TP: g.TP, FP: g.FP, TN: g.TN, FN: g.FN}
}

// Report re-derives the group's rates from its matrix, which keeps loaded
// rows bit-identical with freshly computed ones.
func (g GroupMetrics) Report() fairness.Report {
	return fairness.Compute(g.Matrix())
}

// RatePtr converts a rate to its nullable persisted form.
func RatePtr(r fairness.Rate) *float64 {
	v, err := r.Value()
	if err != nil {
		return nil
	}
	return &v
}

// PtrRate converts a nullable column back to a rate.
func PtrRate(p *float64) fairness.Rate {
	if p == nil {
		return fairness.UndefinedRate()
	}
	return fairness.DefinedRate(*p)
}

// GroupStat is one row of descriptive statistics for a demographic group:
// its size, its share of the analyzed population, how often the outcome
// occurred, and the mean risk decile it was assigned.
type GroupStat struct {
	Group      string  `json:"group" db:"group_name"`
	Count      int     `json:"count" db:"n"`
	Share      float64 `json:"share" db:"share"`
	BaseRate   float64 `json:"base_rate" db:"base_rate"`
	MeanDecile float64 `json:"mean_decile" db:"mean_decile"`
}

// ScoreOutcomeCell is one cell of the score-label by outcome cross-tab.
type ScoreOutcomeCell struct {
	Label      string `json:"label" db:"label"`
	Reoffended int    `json:"reoffended" db:"reoffended"`
	Desisted   int    `json:"desisted" db:"desisted"`
}

// RunResult is a fully assembled analysis, ready for rendering.
type RunResult struct {
	Run        AnalysisRun        `json:"run"`
	Groups     []GroupMetrics     `json:"groups"`
	GroupStats []GroupStat        `json:"group_stats,omitempty"`
	CrossTab   []ScoreOutcomeCell `json:"cross_tab,omitempty"`
	Narrative  string             `json:"narrative,omitempty"`
}
