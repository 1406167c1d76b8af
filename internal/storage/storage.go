// Package storage persists screenings and analysis runs. Two backends
// implement the same interface: SQLite for zero-setup local work and
// PostgreSQL for shared deployments. Rate columns are nullable so an
// undefined rate round-trips as SQL NULL, never as 0.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store defines the persistence interface shared by both backends.
type Store interface {
	// Screening operations
	SaveScreenings(ctx context.Context, variant string, rows []dataset.Screening) error
	Screenings(ctx context.Context, variant string) ([]dataset.Screening, error)
	CountScreenings(ctx context.Context, variant string) (int, error)

	// Descriptive queries over ingested screenings
	GroupStats(ctx context.Context, variant, groupField string) ([]models.GroupStat, error)
	CrossTab(ctx context.Context, variant string) ([]models.ScoreOutcomeCell, error)

	// Run operations
	SaveRun(ctx context.Context, run *models.AnalysisRun, groups []models.GroupMetrics) error
	GetRun(ctx context.Context, id string) (*models.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)

	// Close connection
	Close() error
}

// Open dispatches on the configured backend. sqlitePath is used by the
// sqlite backend, dsn by postgres.
func Open(backend, sqlitePath, dsn string, logger *logrus.Logger) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStore(sqlitePath, logger)
	case BackendPostgres:
		return NewPostgresStore(dsn, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %q or %q)", backend, BackendSQLite, BackendPostgres)
	}
}

// groupColumn maps a user-facing group field to its screenings column. The
// whitelist keeps group selection out of SQL string building.
func groupColumn(field string) (string, error) {
	switch field {
	case "race":
		return "race", nil
	case "sex":
		return "sex", nil
	case "age_category":
		return "age_category", nil
	default:
		return "", fmt.Errorf("unsupported group field %q (want race, sex or age_category)", field)
	}
}
