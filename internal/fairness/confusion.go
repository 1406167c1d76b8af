// Package fairness evaluates binary classifiers against observed outcomes.
// It builds confusion matrices from (predicted, actual, group) records,
// derives rate metrics (accuracy, PPV, FPR, FNR) with explicit signaling of
// undefined rates, and compares the metrics across population subgroups.
//
// All operations are pure functions over immutable inputs. The package
// computes numbers only; deciding whether a cross-group gap constitutes
// unfairness is a downstream, human judgment.
//
// Reference: docs/METHODOLOGY.md §2 (metric definitions).
package fairness

// ConfusionMatrix counts the four outcome classes for a set of records.
// Fields are named rather than positional so that the predicted/actual axes
// cannot be transposed by a miswired index.
type ConfusionMatrix struct {
	TP int `json:"tp" db:"tp"` // predicted positive, outcome positive
	FP int `json:"fp" db:"fp"` // predicted positive, outcome negative
	TN int `json:"tn" db:"tn"` // predicted negative, outcome negative
	FN int `json:"fn" db:"fn"` // predicted negative, outcome positive
}

// Build partitions records into the four exhaustive, mutually exclusive
// buckets keyed by the (predicted, actual) pair. An empty input yields the
// zero matrix, which is valid, not an error.
func Build(records []Record) ConfusionMatrix {
	var cm ConfusionMatrix
	for _, r := range records {
		cm.Add(r)
	}
	return cm
}

// Add counts a single record into the matrix.
func (cm *ConfusionMatrix) Add(r Record) {
	switch {
	case r.Predicted && r.Actual:
		cm.TP++
	case r.Predicted && !r.Actual:
		cm.FP++
	case !r.Predicted && r.Actual:
		cm.FN++
	default:
		cm.TN++
	}
}

// Total returns the number of records counted into the matrix.
// Build guarantees Total() == len(records).
func (cm ConfusionMatrix) Total() int {
	return cm.TP + cm.FP + cm.TN + cm.FN
}

// Merge returns the field-wise sum of two matrices. Merge is commutative and
// associative, with the zero matrix as identity, so partial matrices built
// over shards of a record set combine into the matrix of the whole set.
func (cm ConfusionMatrix) Merge(other ConfusionMatrix) ConfusionMatrix {
	return ConfusionMatrix{
		TP: cm.TP + other.TP,
		FP: cm.FP + other.FP,
		TN: cm.TN + other.TN,
		FN: cm.FN + other.FN,
	}
}

// BuildByGroup builds one matrix per category in a single pass. Every
// category present in the input appears in the result exactly once.
func BuildByGroup(records []Record, groupOf GroupFunc) map[Category]ConfusionMatrix {
	out := make(map[Category]ConfusionMatrix)
	for _, r := range records {
		g := groupOf(r)
		cm := out[g]
		cm.Add(r)
		out[g] = cm
	}
	return out
}
