package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/lockfile"
	"github.com/obentoo/depsync/internal/recorder"
	"github.com/obentoo/depsync/internal/resolver"
)

// Error variables for the convergence loop
var (
	// ErrManifestTouched is returned when a lockfile-only update changed the manifest
	ErrManifestTouched = errors.New("resolver modified the manifest during convergence")
	// ErrNoConvergence is returned when the pass limit is reached while changes keep coming
	ErrNoConvergence = errors.New("lockfile did not converge")
)

// ConvergeResult summarizes a convergence run
type ConvergeResult struct {
	// Passes is the number of scans over the lockfile, including the final clean one
	Passes int
	// Commits is the number of lockfile changes committed
	Commits int
}

// Converger re-resolves lockfile entries one at a time until a full pass
// over the lockfile changes nothing
type Converger struct {
	project   Project
	resolver  resolver.Invoker
	recorder  Committer
	maxPasses int
}

// ConvergerOption is a functional option for configuring Converger
type ConvergerOption func(*Converger)

// WithMaxPasses stops the loop after n passes; 0 means no limit
func WithMaxPasses(n int) ConvergerOption {
	return func(c *Converger) {
		c.maxPasses = n
	}
}

// NewConverger creates a Converger
func NewConverger(project Project, inv resolver.Invoker, rec Committer, opts ...ConvergerOption) *Converger {
	c := &Converger{
		project:  project,
		resolver: inv,
		recorder: rec,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run iterates to a fixpoint. Each pass reads the lockfile afresh and stops
// at the first entry whose update changed it; that change is committed and
// the scan restarts from the top.
func (c *Converger) Run(ctx context.Context) (*ConvergeResult, error) {
	if err := c.recorder.EnsureClean(c.project.Manifest, c.project.Lockfile); err != nil {
		return nil, err
	}

	result := &ConvergeResult{}
	for {
		if c.maxPasses > 0 && result.Passes >= c.maxPasses {
			return result, fmt.Errorf("%w after %d passes", ErrNoConvergence, result.Passes)
		}
		result.Passes++

		changed, err := c.pass(ctx)
		if err != nil {
			return result, err
		}
		if !changed {
			break
		}
		result.Commits++
	}

	logger.Debug("Lockfile converged after %d passes, %d commits", result.Passes, result.Commits)
	return result, nil
}

// pass scans the lockfile once and reports whether a change was committed
func (c *Converger) pass(ctx context.Context) (bool, error) {
	lockSnapshot, err := os.ReadFile(c.project.LockfilePath())
	if err != nil {
		return false, fmt.Errorf("%w: %v", lockfile.ErrIO, err)
	}
	entries, err := lockfile.Parse(c.project.LockfilePath(), lockSnapshot)
	if err != nil {
		return false, err
	}
	dups := lockfile.Duplicates(entries)

	manifestSnapshot, err := os.ReadFile(c.project.ManifestPath())
	if err != nil {
		return false, fmt.Errorf("reading manifest: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !entry.IsRegistry() {
			continue
		}

		scope := resolver.Package(entry.Name, "")
		if dups[entry.Name] {
			scope = resolver.Package(entry.Name, entry.Version)
		}

		outcome, err := c.resolver.Apply(ctx, scope)
		if err != nil {
			return false, fmt.Errorf("updating dependencies of %s: %w", entry, err)
		}
		if outcome.TouchedFile(c.project.Manifest) {
			restoreErr := errors.Join(
				os.WriteFile(c.project.ManifestPath(), manifestSnapshot, 0644),
				os.WriteFile(c.project.LockfilePath(), lockSnapshot, 0644),
			)
			return false, errors.Join(fmt.Errorf("%w: %s", ErrManifestTouched, entry), restoreErr)
		}
		if !outcome.Changed {
			continue
		}

		change := recorder.Change{
			Paths:   []string{c.project.Lockfile},
			Message: recorder.Message("dependencies: Update dependencies of "+entry.Name, outcome.Summary),
		}
		if err := c.recorder.Commit(change); err != nil {
			return false, err
		}
		logger.Info("Updated dependencies of %s", entry.Name)
		return true, nil
	}

	return false, nil
}
