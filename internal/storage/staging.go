package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/paritylens/paritylens/internal/dataset"
)

// stagingBatchSize keeps each multi-row insert under the postgres parameter
// limit (13 columns per row).
const stagingBatchSize = 500

// StagingClient is the bulk ingestion path for the PostgreSQL backend. The
// Store interface inserts row at a time, which is fine for SQLite files but
// slow for a full dataset over the network; the staging client batches rows
// into multi-row inserts instead. It writes the screenings table created by
// NewPostgresStore.
type StagingClient struct {
	db *sql.DB
}

// NewStagingClient opens a dedicated bulk-insert connection.
func NewStagingClient(ctx context.Context, dsn string) (*StagingClient, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &StagingClient{db: db}, nil
}

// Close closes the database connection
func (c *StagingClient) Close() error {
	return c.db.Close()
}

// StageScreenings bulk-inserts screening rows in batches, skipping rows
// already staged for the variant. Returns the number of rows actually
// inserted.
func (c *StagingClient) StageScreenings(ctx context.Context, variant string, rows []dataset.Screening) (int, error) {
	inserted := 0
	for start := 0; start < len(rows); start += stagingBatchSize {
		end := start + stagingBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := c.stageBatch(ctx, variant, rows[start:end])
		if err != nil {
			return inserted, fmt.Errorf("stage batch at row %d: %w", start, err)
		}
		inserted += n
	}
	return inserted, nil
}

func (c *StagingClient) stageBatch(ctx context.Context, variant string, rows []dataset.Screening) (int, error) {
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO screenings
		(variant, id, sex, age, age_category, race, decile_score, score_text,
		 priors_count, days_before_arrest, charge_degree, recid_flag, two_year_recid)
		VALUES `)

	args := make([]interface{}, 0, len(rows)*13)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 13
		sb.WriteString("(")
		for j := 1; j <= 13; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			variant, row.ID, row.Sex, row.Age, row.AgeCategory, row.Race,
			row.DecileScore, row.ScoreText, row.PriorsCount,
			row.DaysBeforeArrest, row.ChargeDegree, row.RecidFlag, row.TwoYearRecid)
	}
	sb.WriteString(" ON CONFLICT (variant, id) DO NOTHING")

	res, err := c.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountByGroups returns staged row counts for the named groups of one
// demographic field, for post-ingest verification.
func (c *StagingClient) CountByGroups(ctx context.Context, variant, groupField string, groups []string) (map[string]int, error) {
	col, err := groupColumn(groupField)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*)
		FROM screenings
		WHERE variant = $1 AND %[1]s = ANY($2)
		GROUP BY %[1]s
	`, col)

	rows, err := c.db.QueryContext(ctx, query, variant, pq.Array(groups))
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", groupField, err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(groups))
	for rows.Next() {
		var group string
		var n int
		if err := rows.Scan(&group, &n); err != nil {
			return nil, err
		}
		counts[group] = n
	}
	return counts, rows.Err()
}
