package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
)

// SQLiteStore implements storage using SQLite (for local/development)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS screenings (
		variant TEXT NOT NULL,
		id INTEGER NOT NULL,
		sex TEXT,
		age INTEGER,
		age_category TEXT,
		race TEXT,
		decile_score INTEGER,
		score_text TEXT,
		priors_count INTEGER,
		days_before_arrest INTEGER,
		charge_degree TEXT,
		recid_flag INTEGER,
		two_year_recid INTEGER,
		PRIMARY KEY (variant, id)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		variant TEXT NOT NULL,
		classifier TEXT NOT NULL,
		group_field TEXT NOT NULL,
		charge_window_days INTEGER,
		records_read INTEGER,
		records_kept INTEGER,
		excluded_by_window INTEGER,
		excluded_by_recid_flag INTEGER,
		excluded_by_traffic INTEGER,
		excluded_by_score INTEGER,
		tp INTEGER,
		fp INTEGER,
		tn INTEGER,
		fn INTEGER
	);

	CREATE TABLE IF NOT EXISTS group_metrics (
		run_id TEXT NOT NULL,
		group_name TEXT NOT NULL,
		records INTEGER,
		tp INTEGER,
		fp INTEGER,
		tn INTEGER,
		fn INTEGER,
		accuracy REAL,
		ppv REAL,
		fpr REAL,
		fnr REAL,
		PRIMARY KEY (run_id, group_name),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_screenings_race ON screenings(variant, race);
	CREATE INDEX IF NOT EXISTS idx_group_metrics_run ON group_metrics(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Screening operations

func (s *SQLiteStore) SaveScreenings(ctx context.Context, variant string, rows []dataset.Screening) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO screenings
		(variant, id, sex, age, age_category, race, decile_score, score_text,
		 priors_count, days_before_arrest, charge_degree, recid_flag, two_year_recid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, query,
			variant, row.ID, row.Sex, row.Age, row.AgeCategory, row.Race,
			row.DecileScore, row.ScoreText, row.PriorsCount,
			row.DaysBeforeArrest, row.ChargeDegree, row.RecidFlag, row.TwoYearRecid)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Screenings(ctx context.Context, variant string) ([]dataset.Screening, error) {
	var rows []dataset.Screening
	query := `
		SELECT id, sex, age, age_category, race, decile_score, score_text,
		       priors_count, days_before_arrest, charge_degree, recid_flag, two_year_recid
		FROM screenings WHERE variant = ? ORDER BY id
	`

	if err := s.db.SelectContext(ctx, &rows, query, variant); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLiteStore) CountScreenings(ctx context.Context, variant string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM screenings WHERE variant = ?`, variant)
	return n, err
}

// Descriptive queries

func (s *SQLiteStore) GroupStats(ctx context.Context, variant, groupField string) ([]models.GroupStat, error) {
	col, err := groupColumn(groupField)
	if err != nil {
		return nil, err
	}

	var stats []models.GroupStat
	query := fmt.Sprintf(`
		SELECT %[1]s AS group_name,
		       COUNT(*) AS n,
		       CAST(COUNT(*) AS REAL) / (SELECT COUNT(*) FROM screenings WHERE variant = ?) AS share,
		       AVG(two_year_recid) AS base_rate,
		       AVG(decile_score) AS mean_decile
		FROM screenings
		WHERE variant = ?
		GROUP BY %[1]s
		ORDER BY n DESC, group_name
	`, col)

	if err := s.db.SelectContext(ctx, &stats, query, variant, variant); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *SQLiteStore) CrossTab(ctx context.Context, variant string) ([]models.ScoreOutcomeCell, error) {
	var cells []models.ScoreOutcomeCell
	query := `
		SELECT score_text AS label,
		       SUM(CASE WHEN two_year_recid = 1 THEN 1 ELSE 0 END) AS reoffended,
		       SUM(CASE WHEN two_year_recid = 0 THEN 1 ELSE 0 END) AS desisted
		FROM screenings
		WHERE variant = ?
		GROUP BY score_text
		ORDER BY CASE score_text WHEN 'Low' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END
	`

	if err := s.db.SelectContext(ctx, &cells, query, variant); err != nil {
		return nil, err
	}
	return cells, nil
}

// Run operations

func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.AnalysisRun, groups []models.GroupMetrics) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	runQuery := `
		INSERT INTO runs
		(id, created_at, variant, classifier, group_field, charge_window_days,
		 records_read, records_kept, excluded_by_window, excluded_by_recid_flag,
		 excluded_by_traffic, excluded_by_score, tp, fp, tn, fn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, runQuery,
		run.ID, run.CreatedAt, run.Variant, run.Classifier, run.GroupField,
		run.ChargeWindowDays, run.RecordsRead, run.RecordsKept,
		run.ExcludedByWindow, run.ExcludedByRecidFlag, run.ExcludedByTraffic,
		run.ExcludedByScore, run.TP, run.FP, run.TN, run.FN)
	if err != nil {
		return err
	}

	groupQuery := `
		INSERT INTO group_metrics
		(run_id, group_name, records, tp, fp, tn, fn, accuracy, ppv, fpr, fnr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, g := range groups {
		_, err := tx.ExecContext(ctx, groupQuery,
			run.ID, g.Group, g.Records, g.TP, g.FP, g.TN, g.FN,
			g.Accuracy, g.PPV, g.FPR, g.FNR)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.RunResult, error) {
	var run models.AnalysisRun
	err := s.db.GetContext(ctx, &run, `
		SELECT id, created_at, variant, classifier, group_field, charge_window_days,
		       records_read, records_kept, excluded_by_window, excluded_by_recid_flag,
		       excluded_by_traffic, excluded_by_score, tp, fp, tn, fn
		FROM runs WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var groups []models.GroupMetrics
	err = s.db.SelectContext(ctx, &groups, `
		SELECT run_id, group_name, records, tp, fp, tn, fn, accuracy, ppv, fpr, fnr
		FROM group_metrics WHERE run_id = ? ORDER BY group_name
	`, id)
	if err != nil {
		return nil, err
	}

	return &models.RunResult{Run: run, Groups: groups}, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	var runs []models.AnalysisRun
	query := `
		SELECT id, created_at, variant, classifier, group_field, charge_window_days,
		       records_read, records_kept, excluded_by_window, excluded_by_recid_flag,
		       excluded_by_traffic, excluded_by_score, tp, fp, tn, fn
		FROM runs ORDER BY created_at DESC LIMIT ?
	`

	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}
