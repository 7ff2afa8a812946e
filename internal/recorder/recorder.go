// Package recorder turns each applied change into exactly one commit.
package recorder

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/obentoo/depsync/internal/common/git"
	"github.com/obentoo/depsync/internal/common/logger"
)

// Error variables for recorder operations
var (
	// ErrDirtyTree is returned when unrelated or uncommitted changes would end up in a commit
	ErrDirtyTree = errors.New("working tree is not clean")
	// ErrEmptyChange is returned for a change without paths or message
	ErrEmptyChange = errors.New("change has no paths or message")
)

// Change is one mutation to be committed
type Change struct {
	// Paths are the files the change touched, relative to the project directory
	Paths []string
	// Message is the full commit message
	Message string
}

// Message joins a subject and body lines into a commit message
func Message(subject string, body []string) string {
	if len(body) == 0 {
		return subject
	}
	return subject + "\n\n" + strings.Join(body, "\n")
}

// Recorder commits changes through a git executor rooted at the project
type Recorder struct {
	git   git.GitExecutor
	user  string
	email string
}

// Option is a functional option for configuring Recorder
type Option func(*Recorder)

// WithAuthor sets the commit author. Both values are required to take effect.
func WithAuthor(user, email string) Option {
	return func(r *Recorder) {
		r.user = user
		r.email = email
	}
}

// New creates a Recorder
func New(executor git.GitExecutor, opts ...Option) *Recorder {
	r := &Recorder{git: executor}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureClean fails with ErrDirtyTree when any of paths has uncommitted
// changes or when anything at all is staged
func (r *Recorder) EnsureClean(paths ...string) error {
	entries, prefix, err := r.status()
	if err != nil {
		return err
	}

	watched := repoPaths(prefix, paths)
	var dirty []string
	for _, e := range entries {
		if e.Staged() || watched[e.FilePath] {
			dirty = append(dirty, e.FilePath)
		}
	}

	if len(dirty) > 0 {
		return fmt.Errorf("%w: %s", ErrDirtyTree, strings.Join(dirty, ", "))
	}
	return nil
}

// Commit stages exactly the change's paths and commits them on their own.
// It refuses when files outside the change are already staged.
func (r *Recorder) Commit(change Change) error {
	if len(change.Paths) == 0 || change.Message == "" {
		return ErrEmptyChange
	}

	entries, prefix, err := r.status()
	if err != nil {
		return err
	}

	own := repoPaths(prefix, change.Paths)
	var foreign []string
	for _, e := range entries {
		if e.Staged() && !own[e.FilePath] {
			foreign = append(foreign, e.FilePath)
		}
	}
	if len(foreign) > 0 {
		return fmt.Errorf("%w: staged files outside the change: %s", ErrDirtyTree, strings.Join(foreign, ", "))
	}

	if err := r.git.Add(change.Paths...); err != nil {
		return fmt.Errorf("failed to stage %s: %w", strings.Join(change.Paths, ", "), err)
	}
	if err := r.git.Commit(change.Message, r.user, r.email, change.Paths...); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	subject, _, _ := strings.Cut(change.Message, "\n")
	logger.Debug("Committed %s: %s", strings.Join(change.Paths, ", "), subject)
	return nil
}

func (r *Recorder) status() ([]git.StatusEntry, string, error) {
	prefix, err := r.git.Prefix()
	if err != nil {
		return nil, "", err
	}
	entries, err := r.git.Status()
	if err != nil {
		return nil, "", err
	}
	return entries, prefix, nil
}

// repoPaths maps project-relative paths to repository-relative ones
func repoPaths(prefix string, paths []string) map[string]bool {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[path.Join(prefix, filepath.ToSlash(filepath.Clean(p)))] = true
	}
	return out
}
