package dataset

// FilterPolicy is the inclusion contract applied while loading. The rules are
// data-cleaning policy with real impact on results, so every bound is
// explicit and independently switchable rather than baked in.
//
// The defaults reproduce the published ProPublica methodology.
// Reference: docs/METHODOLOGY.md §1 (inclusion criteria).
type FilterPolicy struct {
	// ChargeWindowDays keeps rows whose screening-to-arrest gap satisfies
	// -ChargeWindowDays <= days <= ChargeWindowDays, both bounds
	// inclusive. Rows with no recorded gap are excluded because the
	// charge cannot be matched to the screening. A negative value
	// disables the rule.
	ChargeWindowDays int `json:"charge_window_days" yaml:"charge_window_days" mapstructure:"charge_window_days"`

	// DropMissingRecidFlag excludes rows with is_recid == -1, whose
	// outcome could not be coded.
	DropMissingRecidFlag bool `json:"drop_missing_recid_flag" yaml:"drop_missing_recid_flag" mapstructure:"drop_missing_recid_flag"`

	// DropTrafficOffenses excludes ordinary traffic offenses
	// (c_charge_degree == "O"), which do not lead to jail time.
	DropTrafficOffenses bool `json:"drop_traffic_offenses" yaml:"drop_traffic_offenses" mapstructure:"drop_traffic_offenses"`

	// DropMissingScore excludes rows whose score label is "N/A" for the
	// loaded variant.
	DropMissingScore bool `json:"drop_missing_score" yaml:"drop_missing_score" mapstructure:"drop_missing_score"`
}

// DefaultFilterPolicy returns the published inclusion criteria: a 30-day
// charge window, coded outcomes only, no traffic offenses, scored rows only.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		ChargeWindowDays:     30,
		DropMissingRecidFlag: true,
		DropTrafficOffenses:  true,
		DropMissingScore:     true,
	}
}

// KeepAll returns the policy that keeps every parsed row: the window rule
// disabled and every drop rule off. Ingest stores rows under this policy so
// the database holds the whole file and each run applies its own inclusion
// criteria.
func KeepAll() FilterPolicy {
	return FilterPolicy{ChargeWindowDays: -1}
}

// exclusionReason attributes a dropped row to the rule that dropped it.
type exclusionReason int

const (
	keep exclusionReason = iota
	excludedByWindow
	excludedByRecidFlag
	excludedByTraffic
	excludedByScore
)

// exclude evaluates the rules in a fixed order so that exclusion tallies are
// attributable: window, recid flag, traffic degree, score presence.
func (p FilterPolicy) exclude(s Screening) exclusionReason {
	if p.ChargeWindowDays >= 0 {
		if s.DaysBeforeArrest == nil {
			return excludedByWindow
		}
		d := *s.DaysBeforeArrest
		if d < -p.ChargeWindowDays || d > p.ChargeWindowDays {
			return excludedByWindow
		}
	}
	if p.DropMissingRecidFlag && s.RecidFlag == -1 {
		return excludedByRecidFlag
	}
	if p.DropTrafficOffenses && s.ChargeDegree == "O" {
		return excludedByTraffic
	}
	if p.DropMissingScore && s.ScoreText == missingScoreText {
		return excludedByScore
	}
	return keep
}

// Apply filters already-parsed rows. Loading from CSV goes through here too,
// so file and in-memory inputs share one filtering path.
func (p FilterPolicy) Apply(rows []Screening) ([]Screening, FilterStats) {
	kept := make([]Screening, 0, len(rows))
	var st FilterStats
	for _, s := range rows {
		st.Read++
		reason := p.exclude(s)
		st.count(reason)
		if reason == keep {
			kept = append(kept, s)
		}
	}
	return kept, st
}

// FilterStats tallies what the policy did to a load, so result deltas are
// attributable to individual rules.
type FilterStats struct {
	Read                int `json:"read"`
	Kept                int `json:"kept"`
	ExcludedByWindow    int `json:"excluded_by_window"`
	ExcludedByRecidFlag int `json:"excluded_by_recid_flag"`
	ExcludedByTraffic   int `json:"excluded_by_traffic"`
	ExcludedByScore     int `json:"excluded_by_score"`
}

func (st *FilterStats) count(reason exclusionReason) {
	switch reason {
	case keep:
		st.Kept++
	case excludedByWindow:
		st.ExcludedByWindow++
	case excludedByRecidFlag:
		st.ExcludedByRecidFlag++
	case excludedByTraffic:
		st.ExcludedByTraffic++
	case excludedByScore:
		st.ExcludedByScore++
	}
}
