package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
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
		created_at TIMESTAMPTZ NOT NULL,
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
		run_id TEXT NOT NULL REFERENCES runs(id),
		group_name TEXT NOT NULL,
		records INTEGER,
		tp INTEGER,
		fp INTEGER,
		tn INTEGER,
		fn INTEGER,
		accuracy DOUBLE PRECISION,
		ppv DOUBLE PRECISION,
		fpr DOUBLE PRECISION,
		fnr DOUBLE PRECISION,
		PRIMARY KEY (run_id, group_name)
	);

	CREATE INDEX IF NOT EXISTS idx_screenings_race ON screenings(variant, race);
	CREATE INDEX IF NOT EXISTS idx_group_metrics_run ON group_metrics(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Screening operations

func (s *PostgresStore) SaveScreenings(ctx context.Context, variant string, rows []dataset.Screening) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO screenings
		(variant, id, sex, age, age_category, race, decile_score, score_text,
		 priors_count, days_before_arrest, charge_degree, recid_flag, two_year_recid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (variant, id) DO UPDATE SET
			decile_score = EXCLUDED.decile_score,
			score_text = EXCLUDED.score_text,
			two_year_recid = EXCLUDED.two_year_recid
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

func (s *PostgresStore) Screenings(ctx context.Context, variant string) ([]dataset.Screening, error) {
	var rows []dataset.Screening
	query := `
		SELECT id, sex, age, age_category, race, decile_score, score_text,
		       priors_count, days_before_arrest, charge_degree, recid_flag, two_year_recid
		FROM screenings WHERE variant = $1 ORDER BY id
	`

	if err := s.db.SelectContext(ctx, &rows, query, variant); err != nil {
		return nil, fmt.Errorf("select screenings: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) CountScreenings(ctx context.Context, variant string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM screenings WHERE variant = $1`, variant)
	return n, err
}

// Descriptive queries

func (s *PostgresStore) GroupStats(ctx context.Context, variant, groupField string) ([]models.GroupStat, error) {
	col, err := groupColumn(groupField)
	if err != nil {
		return nil, err
	}

	var stats []models.GroupStat
	query := fmt.Sprintf(`
		SELECT %[1]s AS group_name,
		       COUNT(*) AS n,
		       COUNT(*)::DOUBLE PRECISION / (SELECT COUNT(*) FROM screenings WHERE variant = $1) AS share,
		       AVG(two_year_recid)::DOUBLE PRECISION AS base_rate,
		       AVG(decile_score)::DOUBLE PRECISION AS mean_decile
		FROM screenings
		WHERE variant = $2
		GROUP BY %[1]s
		ORDER BY n DESC, group_name
	`, col)

	if err := s.db.SelectContext(ctx, &stats, query, variant, variant); err != nil {
		return nil, fmt.Errorf("group stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) CrossTab(ctx context.Context, variant string) ([]models.ScoreOutcomeCell, error) {
	var cells []models.ScoreOutcomeCell
	query := `
		SELECT score_text AS label,
		       SUM(CASE WHEN two_year_recid = 1 THEN 1 ELSE 0 END) AS reoffended,
		       SUM(CASE WHEN two_year_recid = 0 THEN 1 ELSE 0 END) AS desisted
		FROM screenings
		WHERE variant = $1
		GROUP BY score_text
		ORDER BY CASE score_text WHEN 'Low' THEN 0 WHEN 'Medium' THEN 1 ELSE 2 END
	`

	if err := s.db.SelectContext(ctx, &cells, query, variant); err != nil {
		return nil, fmt.Errorf("cross tab: %w", err)
	}
	return cells, nil
}

// Run operations

func (s *PostgresStore) SaveRun(ctx context.Context, run *models.AnalysisRun, groups []models.GroupMetrics) error {
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
		VALUES (:id, :created_at, :variant, :classifier, :group_field, :charge_window_days,
		        :records_read, :records_kept, :excluded_by_window, :excluded_by_recid_flag,
		        :excluded_by_traffic, :excluded_by_score, :tp, :fp, :tn, :fn)
	`
	if _, err := tx.NamedExecContext(ctx, runQuery, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	groupQuery := `
		INSERT INTO group_metrics
		(run_id, group_name, records, tp, fp, tn, fn, accuracy, ppv, fpr, fnr)
		VALUES (:run_id, :group_name, :records, :tp, :fp, :tn, :fn, :accuracy, :ppv, :fpr, :fnr)
	`
	for _, g := range groups {
		g.RunID = run.ID
		if _, err := tx.NamedExecContext(ctx, groupQuery, g); err != nil {
			return fmt.Errorf("save group metrics: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.RunResult, error) {
	var run models.AnalysisRun
	err := s.db.GetContext(ctx, &run, `
		SELECT id, created_at, variant, classifier, group_field, charge_window_days,
		       records_read, records_kept, excluded_by_window, excluded_by_recid_flag,
		       excluded_by_traffic, excluded_by_score, tp, fp, tn, fn
		FROM runs WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var groups []models.GroupMetrics
	err = s.db.SelectContext(ctx, &groups, `
		SELECT run_id, group_name, records, tp, fp, tn, fn, accuracy, ppv, fpr, fnr
		FROM group_metrics WHERE run_id = $1 ORDER BY group_name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get run groups: %w", err)
	}

	return &models.RunResult{Run: run, Groups: groups}, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	var runs []models.AnalysisRun
	query := `
		SELECT id, created_at, variant, classifier, group_field, charge_window_days,
		       records_read, records_kept, excluded_by_window, excluded_by_recid_flag,
		       excluded_by_traffic, excluded_by_score, tp, fp, tn, fn
		FROM runs ORDER BY created_at DESC LIMIT $1
	`

	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
