package dataset

// Screening is one COMPAS screening row after parsing and column
// normalization. DecileScore and ScoreText are filled from the
// variant-appropriate columns at load time, so downstream code never needs to
// know which variant produced a row.
type Screening struct {
	ID          int    `json:"id" db:"id"`
	Sex         string `json:"sex" db:"sex"`
	Age         int    `json:"age" db:"age"`
	AgeCategory string `json:"age_category" db:"age_category"`
	Race        string `json:"race" db:"race"`

	DecileScore int    `json:"decile_score" db:"decile_score"`
	ScoreText   string `json:"score_text" db:"score_text"`
	PriorsCount int    `json:"priors_count" db:"priors_count"`

	// DaysBeforeArrest is days_b_screening_arrest: the signed gap between
	// the COMPAS screening date and the arrest date of the current charge.
	// Nil when the source row has no recorded gap.
	DaysBeforeArrest *int `json:"days_before_arrest,omitempty" db:"days_before_arrest"`

	// ChargeDegree is the degree of the current charge: "F" felony,
	// "M" misdemeanor, "O" ordinary traffic offense.
	ChargeDegree string `json:"charge_degree" db:"charge_degree"`

	// RecidFlag is is_recid; -1 marks subjects whose recidivism could not
	// be coded from the available records.
	RecidFlag int `json:"recid_flag" db:"recid_flag"`

	// TwoYearRecid is 1 when the subject was re-arrested within the
	// two-year follow-up window.
	TwoYearRecid int `json:"two_year_recid" db:"two_year_recid"`
}

// Recidivated reports the observed outcome within the follow-up window.
func (s Screening) Recidivated() bool { return s.TwoYearRecid == 1 }

// Raw column names shared by both dataset variants.
const (
	colID          = "id"
	colSex         = "sex"
	colAge         = "age"
	colAgeCategory = "age_cat"
	colRace        = "race"
	colPriors      = "priors_count"
	colDaysBefore  = "days_b_screening_arrest"
	colDegree      = "c_charge_degree"
	colRecidFlag   = "is_recid"
	colOutcome     = "two_year_recid"
)

// missingScoreText marks rows that were never scored.
const missingScoreText = "N/A"
