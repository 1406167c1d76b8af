package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureHeader = "id,name,sex,age,age_cat,race,decile_score,score_text,priors_count," +
	"days_b_screening_arrest,c_charge_degree,is_recid,two_year_recid,v_decile_score,v_score_text"

// fixtureRow renders one CSV data row; days is raw text so tests can leave
// the gap empty.
func fixtureRow(id int, days, degree string, recid int, scoreText string) string {
	return fmt.Sprintf("%d,Kai Doe,Male,34,25 - 45,African-American,7,%s,3,%s,%s,%d,1,2,Low",
		id, scoreText, days, degree, recid)
}

func fixtureCSV(rows ...string) string {
	return fixtureHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func keptIDs(res *Result) []int {
	ids := make([]int, 0, len(res.Rows))
	for _, s := range res.Rows {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestReadAppliesDefaultPolicy(t *testing.T) {
	input := fixtureCSV(
		fixtureRow(1, "0", "F", 0, "High"),    // kept
		fixtureRow(2, "-31", "F", 0, "High"),  // outside window
		fixtureRow(3, "5", "F", -1, "Medium"), // outcome not codeable
		fixtureRow(4, "5", "O", 0, "Low"),     // traffic offense
		fixtureRow(5, "5", "M", 1, "N/A"),     // never scored
		fixtureRow(6, "30", "M", 1, "Low"),    // kept, boundary day
	)

	res, err := Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 6}, keptIDs(res))
	assert.Equal(t, FilterStats{
		Read:                6,
		Kept:                2,
		ExcludedByWindow:    1,
		ExcludedByRecidFlag: 1,
		ExcludedByTraffic:   1,
		ExcludedByScore:     1,
	}, res.Stats)
}

func TestChargeWindowBoundaries(t *testing.T) {
	// The window bounds are inclusive. Exercise the policy at 29, 30 and 31
	// days against gaps sitting exactly on each edge.
	days := map[int]string{
		1: "-31", 2: "-30", 3: "-29", 4: "0", 5: "29", 6: "30", 7: "31",
	}
	input := fixtureCSV(
		fixtureRow(1, days[1], "F", 0, "Low"),
		fixtureRow(2, days[2], "F", 0, "Low"),
		fixtureRow(3, days[3], "F", 0, "Low"),
		fixtureRow(4, days[4], "F", 0, "Low"),
		fixtureRow(5, days[5], "F", 0, "Low"),
		fixtureRow(6, days[6], "F", 0, "Low"),
		fixtureRow(7, days[7], "F", 0, "Low"),
	)

	tests := []struct {
		window int
		want   []int
	}{
		{29, []int{3, 4, 5}},
		{30, []int{2, 3, 4, 5, 6}},
		{31, []int{1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("window=%d", tt.window), func(t *testing.T) {
			policy := DefaultFilterPolicy()
			policy.ChargeWindowDays = tt.window

			res, err := Read(strings.NewReader(input), VariantGeneral, policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keptIDs(res))
			assert.Equal(t, 7-len(tt.want), res.Stats.ExcludedByWindow)
		})
	}
}

func TestMissingGapExcludedByWindow(t *testing.T) {
	input := fixtureCSV(
		fixtureRow(1, "", "F", 0, "Low"),
		fixtureRow(2, "3", "F", 0, "Low"),
	)

	res, err := Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, keptIDs(res))
	assert.Equal(t, 1, res.Stats.ExcludedByWindow)

	// With the window rule disabled the gapless row survives.
	policy := DefaultFilterPolicy()
	policy.ChargeWindowDays = -1
	res, err = Read(strings.NewReader(input), VariantGeneral, policy)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, keptIDs(res))
	require.NotEmpty(t, res.Rows)
	assert.Nil(t, res.Rows[0].DaysBeforeArrest)
}

func TestFilterRulesToggleIndependently(t *testing.T) {
	input := fixtureCSV(
		fixtureRow(1, "500", "O", -1, "N/A"), // violates every rule
		fixtureRow(2, "0", "F", 0, "High"),
	)

	policy := FilterPolicy{ChargeWindowDays: -1, DropTrafficOffenses: true}
	res, err := Read(strings.NewReader(input), VariantGeneral, policy)
	require.NoError(t, err)

	// Only the traffic rule fires; the other violations pass through.
	assert.Equal(t, []int{2}, keptIDs(res))
	assert.Equal(t, 1, res.Stats.ExcludedByTraffic)
	assert.Zero(t, res.Stats.ExcludedByWindow)
	assert.Zero(t, res.Stats.ExcludedByRecidFlag)
	assert.Zero(t, res.Stats.ExcludedByScore)
}

func TestColumnsResolvedByHeaderName(t *testing.T) {
	// Same fields, scrambled column order.
	input := "race,two_year_recid,id,sex,age_cat,age,score_text,decile_score," +
		"priors_count,c_charge_degree,days_b_screening_arrest,is_recid,v_decile_score,v_score_text\n" +
		"Caucasian,1,42,Female,Less than 25,22,Medium,5,0,F,-1,1,3,Low\n"

	res, err := Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	s := res.Rows[0]
	assert.Equal(t, 42, s.ID)
	assert.Equal(t, "Female", s.Sex)
	assert.Equal(t, 22, s.Age)
	assert.Equal(t, "Less than 25", s.AgeCategory)
	assert.Equal(t, "Caucasian", s.Race)
	assert.Equal(t, 5, s.DecileScore)
	assert.Equal(t, "Medium", s.ScoreText)
	assert.Equal(t, 0, s.PriorsCount)
	require.NotNil(t, s.DaysBeforeArrest)
	assert.Equal(t, -1, *s.DaysBeforeArrest)
	assert.Equal(t, "F", s.ChargeDegree)
	assert.Equal(t, 1, s.RecidFlag)
	assert.True(t, s.Recidivated())
}

func TestViolentVariantUsesViolentScoreColumns(t *testing.T) {
	// decile_score/score_text say High, the violent columns say Low: the
	// violent variant must pick up the latter.
	input := fixtureCSV(fixtureRow(1, "0", "F", 0, "High"))

	res, err := Read(strings.NewReader(input), VariantViolent, DefaultFilterPolicy())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 2, res.Rows[0].DecileScore)
	assert.Equal(t, "Low", res.Rows[0].ScoreText)
}

func TestViolentVariantDropsMissingViolentScore(t *testing.T) {
	input := fixtureHeader + "\n" +
		"1,Kai Doe,Male,34,25 - 45,Other,7,High,3,0,F,0,1,2,N/A\n"

	res, err := Read(strings.NewReader(input), VariantViolent, DefaultFilterPolicy())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.Stats.ExcludedByScore)

	// The general variant keeps the same row: its score_text is present.
	res, err = Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestMissingColumnsReported(t *testing.T) {
	input := "id,sex\n1,Male\n"

	_, err := Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "decile_score")
}

func TestParseErrorCarriesRowNumber(t *testing.T) {
	input := fixtureCSV(
		fixtureRow(1, "0", "F", 0, "Low"),
		strings.Replace(fixtureRow(2, "0", "F", 0, "Low"), "2,Kai Doe,Male,34", "2,Kai Doe,Male,unknown", 1),
	)

	_, err := Read(strings.NewReader(input), VariantGeneral, DefaultFilterPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data row 2")
	assert.Contains(t, err.Error(), "column age")
}

func TestLoadResolvesVariantFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, VariantGeneral.FileName())
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV(fixtureRow(9, "1", "F", 0, "Low"))), 0o644))

	res, err := Load(dir, VariantGeneral, DefaultFilterPolicy())
	require.NoError(t, err)
	assert.Equal(t, []int{9}, keptIDs(res))

	_, err = Load(dir, VariantViolent, DefaultFilterPolicy())
	require.Error(t, err, "violent file was never written")
}
