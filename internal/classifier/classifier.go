// Package classifier turns screening rows into binary risk calls. The
// fairness evaluator is agnostic to classifier provenance: anything
// satisfying Classifier can feed it, whether the published COMPAS score under
// a threshold or an independently estimated model.
package classifier

import "github.com/paritylens/paritylens/internal/dataset"

// Classifier produces a binary high-risk call for one screening row.
type Classifier interface {
	// Name identifies the classifier and its parameters in run records.
	Name() string
	// Predict returns true when the subject is called high risk.
	Predict(s dataset.Screening) (bool, error)
}
