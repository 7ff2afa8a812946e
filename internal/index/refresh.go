package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obentoo/depsync/internal/common/git"
)

// DefaultURL is the upstream location of the crates.io index
const DefaultURL = "https://github.com/rust-lang/crates.io-index"

var (
	// ErrNotCheckout indicates the index directory exists but is not a git checkout
	ErrNotCheckout = errors.New("index directory is not a git checkout")
	// ErrNoURL indicates a clone was needed but no URL is configured
	ErrNoURL = errors.New("no index URL configured")
)

// RefreshResult contains the result of a Refresh operation
type RefreshResult struct {
	Cloned  bool   // True if the index was cloned rather than pulled
	Message string // Human-readable status message
}

// Refresh brings the index checkout at path up to date with url.
// It clones a shallow copy when path does not exist and pulls otherwise.
// Refreshing must happen before any resolver runs so that every decision in
// a run is made against the same snapshot.
func Refresh(path, url string) (*RefreshResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		parent := filepath.Dir(path)
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index parent directory: %w", err)
		}
		return CloneWithRunner(git.NewGitRunner(parent), url, filepath.Base(path))
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotCheckout, path)
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCheckout, path)
	}

	return PullWithRunner(git.NewGitRunner(path), "origin")
}

// CloneWithRunner clones the index into dir using a provided GitExecutor.
// This allows for testing with mock implementations.
func CloneWithRunner(runner git.GitExecutor, url, dir string) (*RefreshResult, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	if err := runner.Clone(url, dir, 1); err != nil {
		return nil, fmt.Errorf("failed to clone index: %w", err)
	}
	return &RefreshResult{
		Cloned:  true,
		Message: "Index cloned from " + url,
	}, nil
}

// PullWithRunner updates an existing index checkout using a provided GitExecutor.
func PullWithRunner(runner git.GitExecutor, remote string) (*RefreshResult, error) {
	if err := runner.Pull(remote, 1); err != nil {
		return nil, fmt.Errorf("failed to pull index: %w", err)
	}
	return &RefreshResult{
		Message: "Index updated from " + remote,
	}, nil
}
