package storage

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stagingTestDSN returns the connection string for staging integration tests,
// or skips. Set PLENS_TEST_POSTGRES_DSN to run them against a live server.
func stagingTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PLENS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLENS_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestCountByGroupsRejectsUnknownField(t *testing.T) {
	// groupColumn validates before any query runs, so a client without a
	// connection is enough here.
	client := &StagingClient{}
	_, err := client.CountByGroups(context.Background(), "general", "zipcode", []string{"33301"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipcode")
}

func TestStageScreeningsEmptyInput(t *testing.T) {
	client := &StagingClient{}
	n, err := client.StageScreenings(context.Background(), "general", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStagingRoundTrip(t *testing.T) {
	dsn := stagingTestDSN(t)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store, err := NewPostgresStore(dsn, logger)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	client, err := NewStagingClient(ctx, dsn)
	require.NoError(t, err)
	defer client.Close()

	rows := sampleScreenings()
	n, err := client.StageScreenings(ctx, "general", rows)
	require.NoError(t, err)
	assert.Equal(t, len(rows), n)

	// Re-staging the same rows is a no-op thanks to the conflict clause.
	n, err = client.StageScreenings(ctx, "general", rows)
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := client.CountByGroups(ctx, "general", "race",
		[]string{"African-American", "Caucasian"})
	require.NoError(t, err)

	want := map[string]int{}
	for _, r := range rows {
		if r.Race == "African-American" || r.Race == "Caucasian" {
			want[r.Race]++
		}
	}
	assert.Equal(t, want, counts)
}
