package fetch

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const checkpointBucket = "fetch_checkpoints"

// Checkpoint records what we know about a previously downloaded file.
type Checkpoint struct {
	Path      string    `json:"path"`
	CommitSHA string    `json:"commit_sha"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CheckpointStore persists checkpoints in a local bbolt file so unchanged
// dataset files are not downloaded twice.
type CheckpointStore struct {
	db *bolt.DB
}

// OpenCheckpointStore opens or creates the checkpoint database at path.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store %s: %w", path, err)
	}
	return &CheckpointStore{db: db}, nil
}

// Get returns the checkpoint recorded for a file path, or nil if none exists.
func (s *CheckpointStore) Get(path string) (*Checkpoint, error) {
	var cp *Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(checkpointBucket))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(path))
		if data == nil {
			return nil
		}
		cp = &Checkpoint{}
		return json.Unmarshal(data, cp)
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// Put records a checkpoint, replacing any previous one for the same path.
func (s *CheckpointStore) Put(cp Checkpoint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		if err != nil {
			return err
		}
		data, err := json.Marshal(cp)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(cp.Path), data)
	})
}

// Close closes the underlying database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
