package fairness

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

// makeRecords expands matrix counts into a record slice for one group.
func makeRecords(group Category, tp, fp, tn, fn int) []Record {
	records := make([]Record, 0, tp+fp+tn+fn)
	for i := 0; i < tp; i++ {
		records = append(records, Record{Predicted: true, Actual: true, Group: group})
	}
	for i := 0; i < fp; i++ {
		records = append(records, Record{Predicted: true, Actual: false, Group: group})
	}
	for i := 0; i < tn; i++ {
		records = append(records, Record{Predicted: false, Actual: false, Group: group})
	}
	for i := 0; i < fn; i++ {
		records = append(records, Record{Predicted: false, Actual: true, Group: group})
	}
	return records
}

func mustValue(t *testing.T, r Rate) float64 {
	t.Helper()
	v, err := r.Value()
	if err != nil {
		t.Fatalf("expected defined rate, got %v", err)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildCountsEveryRecordOnce(t *testing.T) {
	tests := []struct {
		name           string
		tp, fp, tn, fn int
	}{
		{"empty", 0, 0, 0, 0},
		{"single true positive", 1, 0, 0, 0},
		{"balanced", 3, 3, 3, 3},
		{"skewed", 0, 17, 2, 41},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := makeRecords("g", tt.tp, tt.fp, tt.tn, tt.fn)
			cm := Build(records)
			if cm.Total() != len(records) {
				t.Errorf("Total() = %d, want %d", cm.Total(), len(records))
			}
			want := ConfusionMatrix{TP: tt.tp, FP: tt.fp, TN: tt.tn, FN: tt.fn}
			if cm != want {
				t.Errorf("Build() = %+v, want %+v", cm, want)
			}
		})
	}
}

func TestBuildBucketsByPredictedAndActual(t *testing.T) {
	tests := []struct {
		name              string
		predicted, actual bool
		want              ConfusionMatrix
	}{
		{"flagged and re-offended", true, true, ConfusionMatrix{TP: 1}},
		{"flagged and stayed clean", true, false, ConfusionMatrix{FP: 1}},
		{"cleared and stayed clean", false, false, ConfusionMatrix{TN: 1}},
		{"cleared and re-offended", false, true, ConfusionMatrix{FN: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := Build([]Record{{Predicted: tt.predicted, Actual: tt.actual}})
			if cm != tt.want {
				t.Errorf("Build() = %+v, want %+v", cm, tt.want)
			}
		})
	}
}

func TestComputeAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		cm      ConfusionMatrix
		want    float64
		defined bool
	}{
		{"perfect classifier", ConfusionMatrix{TP: 7, TN: 13}, 1.0, true},
		{"inverted classifier", ConfusionMatrix{FP: 4, FN: 6}, 0.0, true},
		{"mixed", ConfusionMatrix{TP: 10, FP: 5, TN: 20, FN: 5}, 0.75, true},
		{"empty matrix", ConfusionMatrix{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Compute(tt.cm)
			if rep.Accuracy.Defined() != tt.defined {
				t.Fatalf("Accuracy.Defined() = %v, want %v", rep.Accuracy.Defined(), tt.defined)
			}
			if !tt.defined {
				return
			}
			got := mustValue(t, rep.Accuracy)
			if !almostEqual(got, tt.want) {
				t.Errorf("accuracy = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("accuracy %v out of [0,1]", got)
			}
		})
	}
}

func TestPPVDependsOnlyOnPredictedPositives(t *testing.T) {
	// TP=30, FP=20 pins PPV at 0.6 no matter how the negatives fall.
	tests := []struct {
		name   string
		tn, fn int
	}{
		{"no negatives recorded", 0, 0},
		{"few negatives", 5, 3},
		{"many negatives", 1000, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Compute(ConfusionMatrix{TP: 30, FP: 20, TN: tt.tn, FN: tt.fn})
			got := mustValue(t, rep.PPV)
			if !almostEqual(got, 0.6) {
				t.Errorf("ppv = %v, want 0.6", got)
			}
		})
	}
}

func TestFPRDerivationsAgree(t *testing.T) {
	tests := []struct {
		name string
		cm   ConfusionMatrix
	}{
		{"typical", ConfusionMatrix{TP: 10, FP: 5, TN: 20, FN: 5}},
		{"all false positives", ConfusionMatrix{FP: 9}},
		{"single negative", ConfusionMatrix{TP: 3, TN: 1, FN: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustValue(t, Compute(tt.cm).FPR)
			n := tt.cm.TN + tt.cm.FP
			want := float64(tt.cm.FP) / float64(n)
			if got != want {
				t.Errorf("fpr = %v, FP/N = %v; derivations must be identical", got, want)
			}
		})
	}
}

func TestUndefinedRatesPerDenominator(t *testing.T) {
	tests := []struct {
		name                    string
		cm                      ConfusionMatrix
		accuracy, ppv, fpr, fnr bool
	}{
		{"empty matrix", ConfusionMatrix{}, false, false, false, false},
		{"nothing predicted positive", ConfusionMatrix{TN: 5, FN: 3}, true, false, true, true},
		{"no actual negatives", ConfusionMatrix{TP: 4, FN: 2}, true, true, false, true},
		{"no actual positives", ConfusionMatrix{FP: 3, TN: 7}, true, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Compute(tt.cm)
			if rep.Accuracy.Defined() != tt.accuracy {
				t.Errorf("Accuracy.Defined() = %v, want %v", rep.Accuracy.Defined(), tt.accuracy)
			}
			if rep.PPV.Defined() != tt.ppv {
				t.Errorf("PPV.Defined() = %v, want %v", rep.PPV.Defined(), tt.ppv)
			}
			if rep.FPR.Defined() != tt.fpr {
				t.Errorf("FPR.Defined() = %v, want %v", rep.FPR.Defined(), tt.fpr)
			}
			if rep.FNR.Defined() != tt.fnr {
				t.Errorf("FNR.Defined() = %v, want %v", rep.FNR.Defined(), tt.fnr)
			}
		})
	}
}

func TestRateZeroIsNotUndefined(t *testing.T) {
	// A group with false positives only: FPR is a hard 1.0, FNR is undefined.
	rep := Compute(ConfusionMatrix{FP: 6})
	if v := mustValue(t, rep.FPR); v != 1.0 {
		t.Errorf("fpr = %v, want 1.0", v)
	}
	if _, err := rep.FNR.Value(); !errors.Is(err, ErrUndefinedRate) {
		t.Errorf("FNR.Value() error = %v, want ErrUndefinedRate", err)
	}

	// Measured zero must survive as a number, not collapse into undefined.
	zero := Compute(ConfusionMatrix{TN: 6}).FPR
	if !zero.Defined() {
		t.Fatal("FPR over actual negatives only should be a defined 0.0")
	}
	if v := mustValue(t, zero); v != 0.0 {
		t.Errorf("fpr = %v, want 0.0", v)
	}

	gotZero, err := json.Marshal(zero)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotZero) != "0" {
		t.Errorf("defined zero marshals to %s, want 0", gotZero)
	}
	gotNull, err := json.Marshal(UndefinedRate())
	if err != nil {
		t.Fatal(err)
	}
	if string(gotNull) != "null" {
		t.Errorf("undefined rate marshals to %s, want null", gotNull)
	}
}

func TestRateJSONRoundTrip(t *testing.T) {
	var r Rate
	if err := json.Unmarshal([]byte("0.25"), &r); err != nil {
		t.Fatal(err)
	}
	if v := mustValue(t, r); v != 0.25 {
		t.Errorf("value = %v, want 0.25", v)
	}
	if err := json.Unmarshal([]byte("null"), &r); err != nil {
		t.Fatal(err)
	}
	if r.Defined() {
		t.Error("null should decode to an undefined rate")
	}
}

func TestCompareGroupsDisparityScenario(t *testing.T) {
	// Two groups with similar overall accuracy but divergent FPR and PPV:
	// the canonical tension the comparison has to surface mechanically.
	records := append(
		makeRecords("A", 10, 5, 20, 5),
		makeRecords("B", 5, 15, 10, 10)...,
	)

	reports := CompareGroups(records, ByGroup)
	if len(reports) != 2 {
		t.Fatalf("got %d groups, want 2", len(reports))
	}

	a, ok := reports["A"]
	if !ok {
		t.Fatal("group A missing from result")
	}
	b, ok := reports["B"]
	if !ok {
		t.Fatal("group B missing from result")
	}

	if got := mustValue(t, a.PPV); !almostEqual(got, 10.0/15.0) {
		t.Errorf("A ppv = %v, want %v", got, 10.0/15.0)
	}
	if got := mustValue(t, a.FPR); got != 0.2 {
		t.Errorf("A fpr = %v, want 0.2", got)
	}
	if got := mustValue(t, b.PPV); got != 0.25 {
		t.Errorf("B ppv = %v, want 0.25", got)
	}
	if got := mustValue(t, b.FPR); got != 0.6 {
		t.Errorf("B fpr = %v, want 0.6", got)
	}
	if got := mustValue(t, b.FPR) / mustValue(t, a.FPR); !almostEqual(got, 3.0) {
		t.Errorf("fpr ratio = %v, want 3.0", got)
	}
}

func TestCompareGroupsReportsPartialMetrics(t *testing.T) {
	// Group "quiet" has true negatives only: accuracy and FPR are defined,
	// PPV and FNR are not. Its gaps must not drop the group or disturb the
	// fully populated group.
	records := append(
		makeRecords("full", 4, 2, 6, 3),
		makeRecords("quiet", 0, 0, 5, 0)...,
	)

	reports := CompareGroups(records, ByGroup)
	if len(reports) != 2 {
		t.Fatalf("got %d groups, want 2", len(reports))
	}

	quiet := reports["quiet"]
	if v := mustValue(t, quiet.Accuracy); v != 1.0 {
		t.Errorf("quiet accuracy = %v, want 1.0", v)
	}
	if v := mustValue(t, quiet.FPR); v != 0.0 {
		t.Errorf("quiet fpr = %v, want 0.0", v)
	}
	if quiet.PPV.Defined() {
		t.Error("quiet ppv should be undefined: nothing predicted positive")
	}
	if quiet.FNR.Defined() {
		t.Error("quiet fnr should be undefined: no actual positives")
	}

	full := reports["full"]
	for name, rate := range map[string]Rate{
		"accuracy": full.Accuracy, "ppv": full.PPV, "fpr": full.FPR, "fnr": full.FNR,
	} {
		if !rate.Defined() {
			t.Errorf("full %s should stay defined alongside the sparse group", name)
		}
	}
}

func TestMergeEquivalentToConcatenation(t *testing.T) {
	left := makeRecords("g", 3, 1, 4, 1)
	right := makeRecords("g", 5, 9, 2, 6)

	merged := Build(left).Merge(Build(right))
	direct := Build(append(append([]Record{}, left...), right...))
	if merged != direct {
		t.Errorf("merged = %+v, direct = %+v", merged, direct)
	}
	if Compute(merged) != Compute(direct) {
		t.Error("metrics over merged and direct matrices differ")
	}

	a, b, c := Build(left), Build(right), ConfusionMatrix{TP: 2, FN: 7}
	if a.Merge(b) != b.Merge(a) {
		t.Error("merge is not commutative")
	}
	if a.Merge(b).Merge(c) != a.Merge(b.Merge(c)) {
		t.Error("merge is not associative")
	}
	if a.Merge(ConfusionMatrix{}) != a {
		t.Error("zero matrix is not the merge identity")
	}
}

func TestComputeIdempotent(t *testing.T) {
	cm := ConfusionMatrix{TP: 11, FP: 3, TN: 29, FN: 7}
	first := Compute(cm)
	second := Compute(cm)
	if first != second {
		t.Errorf("repeated Compute diverged: %+v vs %+v", first, second)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	groups := []Category{"A", "B", "C", "D", "E"}
	var records []Record
	for i := 0; i < 5000; i++ {
		records = append(records, Record{
			Predicted: i%3 == 0,
			Actual:    i%7 < 3,
			Group:     groups[i%len(groups)],
		})
	}

	sequential := CompareGroups(records, ByGroup)
	parallel, err := CompareGroupsParallel(context.Background(), records, ByGroup)
	if err != nil {
		t.Fatalf("CompareGroupsParallel: %v", err)
	}

	if len(parallel) != len(sequential) {
		t.Fatalf("parallel returned %d groups, sequential %d", len(parallel), len(sequential))
	}
	for g, want := range sequential {
		got, ok := parallel[g]
		if !ok {
			t.Errorf("group %s missing from parallel result", g)
			continue
		}
		if got != want {
			t.Errorf("group %s: parallel %+v, sequential %+v", g, got, want)
		}
	}
}

func TestParallelHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make([]Record, 10000)
	if _, err := CompareGroupsParallel(ctx, records, ByGroup); err == nil {
		t.Error("expected error from cancelled context")
	}
}
