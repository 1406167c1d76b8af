package fairness

// Category identifies a population subgroup (e.g. a race or sex value).
// It is an opaque, equality-comparable key: the evaluator never assumes a
// fixed, closed set of categories.
type Category string

// Record is one evaluated subject: the classifier's binary call, the
// observed outcome, and the subgroup the subject belongs to.
// Records are immutable once constructed.
type Record struct {
	// Predicted is true when the subject was classified as high risk
	// (e.g. a medium/high COMPAS score under the canonical threshold).
	Predicted bool
	// Actual is true when the predicted event was observed
	// (e.g. re-arrest within the follow-up window).
	Actual bool
	// Group is the partitioning key for subgroup comparison.
	Group Category
}

// GroupFunc extracts the partition key used by CompareGroups.
type GroupFunc func(Record) Category

// ByGroup partitions records by their own Group field. It is the default
// GroupFunc for callers that filled Group at construction time.
func ByGroup(r Record) Category { return r.Group }
