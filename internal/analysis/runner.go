// Package analysis orchestrates one evaluation end to end: load screenings,
// classify them, build per-group confusion matrices, derive rates, and
// assemble the result for rendering or persistence.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/paritylens/paritylens/internal/classifier"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/fairness"
	"github.com/paritylens/paritylens/internal/models"
	"github.com/paritylens/paritylens/internal/storage"
)

// Options selects what a run evaluates and where its rows come from.
type Options struct {
	Variant    dataset.Variant
	Policy     dataset.FilterPolicy
	Classifier classifier.Classifier
	GroupField string

	// DataDir is read when FromStore is false.
	DataDir string

	// FromStore loads screenings from the configured store instead of the
	// CSV files. Stored rows are re-filtered under Policy so that a run's
	// inclusion criteria are its own, not whatever the ingest used.
	FromStore bool

	// SkipPersist evaluates without saving the run, even when a store is
	// attached.
	SkipPersist bool
}

// Runner executes analysis runs. The store is optional: with a nil store,
// runs load from CSV and results are not persisted.
type Runner struct {
	store  storage.Store
	logger *logrus.Logger
}

// NewRunner creates a runner. store may be nil.
func NewRunner(store storage.Store, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		store:  store,
		logger: logger,
	}
}

// Run performs one complete evaluation and, when a store is configured,
// persists it.
func (r *Runner) Run(ctx context.Context, opts Options) (*models.RunResult, error) {
	startTime := time.Now()

	if opts.Classifier == nil {
		return nil, fmt.Errorf("no classifier configured")
	}
	groupOf, err := GroupAccessor(opts.GroupField)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"variant":     string(opts.Variant),
		"classifier":  opts.Classifier.Name(),
		"group_field": opts.GroupField,
	}).Info("Starting fairness analysis")

	rows, stats, err := r.loadRows(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		r.logger.Warn("No screenings left after applying the inclusion policy")
	}

	records, err := classify(rows, opts.Classifier, groupOf)
	if err != nil {
		return nil, err
	}

	overall := fairness.Build(records)
	byGroup, err := fairness.BuildByGroupParallel(ctx, records, func(rec fairness.Record) fairness.Category {
		return rec.Group
	})
	if err != nil {
		return nil, fmt.Errorf("group evaluation: %w", err)
	}

	run := models.AnalysisRun{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Variant:    string(opts.Variant),
		Classifier: opts.Classifier.Name(),
		GroupField: opts.GroupField,

		ChargeWindowDays:    opts.Policy.ChargeWindowDays,
		RecordsRead:         stats.Read,
		RecordsKept:         stats.Kept,
		ExcludedByWindow:    stats.ExcludedByWindow,
		ExcludedByRecidFlag: stats.ExcludedByRecidFlag,
		ExcludedByTraffic:   stats.ExcludedByTraffic,
		ExcludedByScore:     stats.ExcludedByScore,

		TP: overall.TP,
		FP: overall.FP,
		TN: overall.TN,
		FN: overall.FN,
	}

	groups := make([]models.GroupMetrics, 0, len(byGroup))
	for _, cat := range fairness.SortedCategories(byGroup) {
		groups = append(groups, models.NewGroupMetrics(run.ID, string(cat), byGroup[cat]))
	}

	result := &models.RunResult{
		Run:        run,
		Groups:     groups,
		GroupStats: ComputeGroupStats(rows, groupOf),
		CrossTab:   ComputeCrossTab(rows),
	}

	if r.store != nil && !opts.SkipPersist {
		if err := r.store.SaveRun(ctx, &result.Run, result.Groups); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"kept":     stats.Kept,
		"groups":   len(groups),
		"duration": time.Since(startTime).String(),
	}).Info("Fairness analysis completed")

	return result, nil
}

// loadRows fetches screening rows from the configured source and applies the
// inclusion policy. Both paths filter through the same FilterPolicy.Apply.
func (r *Runner) loadRows(ctx context.Context, opts Options) ([]dataset.Screening, dataset.FilterStats, error) {
	if opts.FromStore {
		if r.store == nil {
			return nil, dataset.FilterStats{}, fmt.Errorf("run from store requested but no store configured")
		}
		all, err := r.store.Screenings(ctx, string(opts.Variant))
		if err != nil {
			return nil, dataset.FilterStats{}, fmt.Errorf("load screenings from store: %w", err)
		}
		rows, stats := opts.Policy.Apply(all)
		return rows, stats, nil
	}

	res, err := dataset.Load(opts.DataDir, opts.Variant, opts.Policy)
	if err != nil {
		return nil, dataset.FilterStats{}, err
	}
	return res.Rows, res.Stats, nil
}

// classify turns screening rows into labeled evaluation records. Any
// classifier error aborts the run; a row we cannot score must never be
// silently dropped or defaulted.
func classify(rows []dataset.Screening, c classifier.Classifier, groupOf func(dataset.Screening) string) ([]fairness.Record, error) {
	records := make([]fairness.Record, len(rows))
	for i, row := range rows {
		predicted, err := c.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("classify screening %d: %w", row.ID, err)
		}
		records[i] = fairness.Record{
			Predicted: predicted,
			Actual:    row.Recidivated(),
			Group:     fairness.Category(groupOf(row)),
		}
	}
	return records, nil
}

// SupportedGroupFields lists the screening attributes a run can group by.
func SupportedGroupFields() []string {
	return []string{"race", "sex", "age_category"}
}

// GroupAccessor resolves a group field name to its row accessor. Resolving
// once up front keeps the per-row path free of field-name dispatch.
func GroupAccessor(field string) (func(dataset.Screening) string, error) {
	switch field {
	case "race":
		return func(s dataset.Screening) string { return s.Race }, nil
	case "sex":
		return func(s dataset.Screening) string { return s.Sex }, nil
	case "age_category":
		return func(s dataset.Screening) string { return s.AgeCategory }, nil
	default:
		return nil, fmt.Errorf("unsupported group field %q (want race, sex or age_category)", field)
	}
}
