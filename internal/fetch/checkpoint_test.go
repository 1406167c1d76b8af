package fetch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckpoints(t *testing.T) *CheckpointStore {
	t.Helper()
	store, err := OpenCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := newTestCheckpoints(t)

	cp := Checkpoint{
		Path:      "compas-scores-two-years.csv",
		CommitSHA: "abc123",
		Size:      2048,
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(cp))

	got, err := store.Get(cp.Path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cp, *got)
}

func TestCheckpointMissReturnsNil(t *testing.T) {
	store := newTestCheckpoints(t)

	got, err := store.Get("never-fetched.csv")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCheckpointOverwrite(t *testing.T) {
	store := newTestCheckpoints(t)

	first := Checkpoint{Path: "f.csv", CommitSHA: "aaa", Size: 1}
	second := Checkpoint{Path: "f.csv", CommitSHA: "bbb", Size: 2}
	require.NoError(t, store.Put(first))
	require.NoError(t, store.Put(second))

	got, err := store.Get("f.csv")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bbb", got.CommitSHA)
	assert.EqualValues(t, 2, got.Size)
}
