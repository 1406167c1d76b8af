package fairness

// Report holds the rate metrics derived from one confusion matrix. Each rate
// is independently defined or undefined; no rounding is applied here, display
// formatting is the caller's concern.
type Report struct {
	// Accuracy is the share of correct calls, (TP+TN)/total.
	Accuracy Rate `json:"accuracy"`
	// PPV (positive predictive value, precision) is TP/(TP+FP): of the
	// subjects flagged high risk, how many re-offended.
	PPV Rate `json:"ppv"`
	// FPR (false positive rate) is FP/(FP+TN): of the subjects who did not
	// re-offend, how many were flagged high risk anyway.
	FPR Rate `json:"fpr"`
	// FNR (false negative rate) is FN/(FN+TP): of the subjects who did
	// re-offend, how many were cleared as low risk.
	FNR Rate `json:"fnr"`
}

// Compute derives the rate metrics from a confusion matrix. A rate is
// undefined exactly when its denominator is zero:
//
//	accuracy  undefined for the empty matrix
//	ppv       undefined when nothing was predicted positive (TP+FP == 0)
//	fpr       undefined when there are no actual negatives  (FP+TN == 0)
//	fnr       undefined when there are no actual positives  (FN+TP == 0)
//
// Compute is a pure function: the same matrix always yields a bit-identical
// report.
func Compute(cm ConfusionMatrix) Report {
	return Report{
		Accuracy: ratio(cm.TP+cm.TN, cm.Total()),
		PPV:      ratio(cm.TP, cm.TP+cm.FP),
		FPR:      ratio(cm.FP, cm.FP+cm.TN),
		FNR:      ratio(cm.FN, cm.FN+cm.TP),
	}
}
