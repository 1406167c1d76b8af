// Package dataset loads COMPAS screening rows from the published CSVs and
// applies the explicit inclusion policy before anything downstream sees them.
// The fairness evaluator assumes pre-filtered, valid input; this package is
// where that contract is enforced.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Result is a completed load: the rows that passed the policy, the exclusion
// tally, and the variant they came from.
type Result struct {
	Rows    []Screening `json:"rows"`
	Stats   FilterStats `json:"stats"`
	Variant Variant     `json:"variant"`
}

// Load reads and filters the variant's CSV file from dir.
func Load(dir string, variant Variant, policy FilterPolicy) (*Result, error) {
	path := filepath.Join(dir, variant.FileName())
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	res, err := Read(f, variant, policy)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return res, nil
}

// Read parses and filters screening rows from r. Columns are resolved by
// header name, never by position, and unknown columns are ignored, so the
// published files can gain columns without breaking the loader. Parse
// failures are hard errors carrying the data row number.
func Read(r io.Reader, variant Variant, policy FilterPolicy) (*Result, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header, variant)
	if err != nil {
		return nil, err
	}

	var parsed []Screening
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data row %d: %w", row, err)
		}
		s, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("data row %d: %w", row, err)
		}
		parsed = append(parsed, s)
	}

	res := &Result{Variant: variant}
	res.Rows, res.Stats = policy.Apply(parsed)
	return res, nil
}

// columnIndex maps the needed columns to their positions in one file.
type columnIndex struct {
	id, sex, age, ageCat, race         int
	decile, scoreText, priors          int
	daysBefore, degree, recid, outcome int
}

func indexColumns(header []string, variant Variant) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	cols := columnIndex{
		id:         lookup(colID),
		sex:        lookup(colSex),
		age:        lookup(colAge),
		ageCat:     lookup(colAgeCategory),
		race:       lookup(colRace),
		decile:     lookup(variant.DecileColumn()),
		scoreText:  lookup(variant.ScoreTextColumn()),
		priors:     lookup(colPriors),
		daysBefore: lookup(colDaysBefore),
		degree:     lookup(colDegree),
		recid:      lookup(colRecidFlag),
		outcome:    lookup(colOutcome),
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("dataset is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(rec []string, cols columnIndex) (Screening, error) {
	var s Screening
	var err error

	if s.ID, err = intField(rec, cols.id, colID); err != nil {
		return s, err
	}
	s.Sex = strings.TrimSpace(rec[cols.sex])
	if s.Age, err = intField(rec, cols.age, colAge); err != nil {
		return s, err
	}
	s.AgeCategory = strings.TrimSpace(rec[cols.ageCat])
	s.Race = strings.TrimSpace(rec[cols.race])
	if s.DecileScore, err = intField(rec, cols.decile, "decile score"); err != nil {
		return s, err
	}
	s.ScoreText = strings.TrimSpace(rec[cols.scoreText])
	if s.PriorsCount, err = intField(rec, cols.priors, colPriors); err != nil {
		return s, err
	}
	if raw := strings.TrimSpace(rec[cols.daysBefore]); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return s, fmt.Errorf("column %s: %w", colDaysBefore, err)
		}
		s.DaysBeforeArrest = &d
	}
	s.ChargeDegree = strings.TrimSpace(rec[cols.degree])
	if s.RecidFlag, err = intField(rec, cols.recid, colRecidFlag); err != nil {
		return s, err
	}
	if s.TwoYearRecid, err = intField(rec, cols.outcome, colOutcome); err != nil {
		return s, err
	}
	return s, nil
}

func intField(rec []string, idx int, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(rec[idx]))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}
