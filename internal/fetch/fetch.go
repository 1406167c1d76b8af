// Package fetch downloads the published COMPAS dataset files from the source
// repository on GitHub, with checkpointing so unchanged files are skipped.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/errors"
	"github.com/paritylens/paritylens/internal/logging"
)

// The dataset files live at the root of ProPublica's analysis repository.
const (
	DefaultOwner = "propublica"
	DefaultRepo  = "compas-analysis"
)

// Fetcher downloads dataset files through the GitHub contents API.
type Fetcher struct {
	client      *github.Client
	checkpoints *CheckpointStore
	rateLimiter *rate.Limiter
	owner       string
	repo        string
}

// NewFetcher creates a fetcher for owner/repo. token may be empty for
// anonymous access; checkpoints may be nil to disable skip detection.
func NewFetcher(token, owner, repo string, checkpoints *CheckpointStore) *Fetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	// Anonymous clients get 60 requests/hour, authenticated 5,000.
	// One request per second stays comfortably under either limit.
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &Fetcher{
		client:      client,
		checkpoints: checkpoints,
		rateLimiter: limiter,
		owner:       owner,
		repo:        repo,
	}
}

// Stats summarizes what a fetch did.
type Stats struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

// FetchDataset downloads the CSV file for each variant into destDir. Files
// whose latest commit matches their checkpoint are skipped.
func (f *Fetcher) FetchDataset(ctx context.Context, destDir string, variants []dataset.Variant) (*Stats, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create dataset directory %s: %w", destDir, err)
	}

	stats := &Stats{}
	for _, v := range variants {
		name := v.FileName()
		downloaded, n, err := f.fetchFile(ctx, name, filepath.Join(destDir, name))
		if err != nil {
			return stats, errors.ExternalErrorf(err, "fetch %s from %s/%s", name, f.owner, f.repo)
		}
		if downloaded {
			stats.Downloaded++
			stats.Bytes += n
			logging.Info("Downloaded dataset file", "file", name, "bytes", n)
		} else {
			stats.Skipped++
			logging.Info("Dataset file unchanged, skipped", "file", name)
		}
	}
	return stats, nil
}

// fetchFile downloads one file unless its checkpoint says the local copy is
// current. The download lands in a temp file and is renamed into place, so a
// failed transfer never clobbers a good copy.
func (f *Fetcher) fetchFile(ctx context.Context, path, dest string) (bool, int64, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return false, 0, err
	}

	sha, err := f.latestCommit(ctx, path)
	if err != nil {
		return false, 0, err
	}

	if f.checkpoints != nil {
		cp, err := f.checkpoints.Get(path)
		if err != nil {
			logging.Warn("Checkpoint lookup failed", "file", path, "error", err)
		} else if cp != nil && cp.CommitSHA == sha {
			if info, statErr := os.Stat(dest); statErr == nil && info.Size() == cp.Size {
				return false, 0, nil
			}
		}
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return false, 0, err
	}

	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, path, nil)
	if err != nil {
		return false, 0, fmt.Errorf("download contents: %w", err)
	}
	defer rc.Close()

	n, err := writeAtomic(dest, rc)
	if err != nil {
		return false, 0, err
	}

	if f.checkpoints != nil {
		err := f.checkpoints.Put(Checkpoint{
			Path:      path,
			CommitSHA: sha,
			Size:      n,
			FetchedAt: time.Now().UTC(),
		})
		if err != nil {
			// The file is already on disk; a failed checkpoint only
			// costs a re-download next time.
			logging.Warn("Checkpoint save failed", "file", path, "error", err)
		}
	}
	return true, n, nil
}

// latestCommit returns the SHA of the newest commit touching path.
func (f *Fetcher) latestCommit(ctx context.Context, path string) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		Path:        path,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("list commits for %s: %w", path, err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits touch %s", path)
	}
	return commits[0].GetSHA(), nil
}

func writeAtomic(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".plens-fetch-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
