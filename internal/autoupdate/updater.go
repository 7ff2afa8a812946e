package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/index"
	"github.com/obentoo/depsync/internal/lockfile"
	"github.com/obentoo/depsync/internal/manifest"
	"github.com/obentoo/depsync/internal/recorder"
	"github.com/obentoo/depsync/internal/resolver"
	"github.com/obentoo/depsync/internal/selector"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefetch bounds the concurrent index reads of Check
const DefaultPrefetch = 8

// Report is the policy decision for one manifest entry
type Report struct {
	Tier manifest.Tier
	selector.Decision
}

// UpdateResult summarizes a manifest pass
type UpdateResult struct {
	// Reports holds one decision per pinned entry, in processing order
	Reports []Report
	// Commits is the number of pins that were bumped and committed
	Commits int
	// Held lists the updates that were found but not applied
	Held []HeldUpdate
}

// Updater runs the manifest pass: every pinned dependency is moved to the
// newest eligible version, one commit per bump.
type Updater struct {
	project  Project
	index    IndexLookup
	selector *selector.Selector
	resolver resolver.Invoker
	recorder Committer
	held     *HeldList
	prefetch int
}

// UpdaterOption is a functional option for configuring Updater
type UpdaterOption func(*Updater)

// WithSelector sets the version policy
func WithSelector(s *selector.Selector) UpdaterOption {
	return func(u *Updater) {
		u.selector = s
	}
}

// WithHeldList persists held updates after each run
func WithHeldList(h *HeldList) UpdaterOption {
	return func(u *Updater) {
		u.held = h
	}
}

// WithPrefetch sets how many index reads Check runs at once
func WithPrefetch(n int) UpdaterOption {
	return func(u *Updater) {
		if n > 0 {
			u.prefetch = n
		}
	}
}

// NewUpdater creates an Updater
func NewUpdater(project Project, idx IndexLookup, inv resolver.Invoker, rec Committer, opts ...UpdaterOption) *Updater {
	u := &Updater{
		project:  project,
		index:    idx,
		selector: selector.New(),
		resolver: inv,
		recorder: rec,
		prefetch: DefaultPrefetch,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run performs the manifest pass. Tiers are processed runtime first, and
// entries in document order. Any lookup, resolver or commit error aborts
// the pass; commits already made are kept.
func (u *Updater) Run(ctx context.Context) (*UpdateResult, error) {
	if err := u.recorder.EnsureClean(u.project.Manifest, u.project.Lockfile); err != nil {
		return nil, err
	}

	m, err := manifest.Open(u.project.ManifestPath())
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	for _, tier := range manifest.Tiers() {
		for _, dep := range m.Dependencies(tier) {
			if !dep.IsPinned() {
				logger.Debug("Skipping %s: requirement %q is not a single version", dep.Name, dep.Requirement)
				continue
			}

			records, err := u.index.Lookup(dep.Name)
			if err != nil {
				return result, fmt.Errorf("looking up %s: %w", dep.Name, err)
			}

			d := u.selector.Decide(dep.Name, dep.Pinned, records)
			result.Reports = append(result.Reports, Report{Tier: tier, Decision: d})

			switch d.Outcome {
			case selector.Upgrade:
				if err := u.apply(ctx, m, tier, d); err != nil {
					return result, err
				}
				result.Commits++
			case selector.Anomaly:
				logger.Warn("%s is pinned to %s but the newest published version is %s", d.Package, d.Current, d.Selected)
				result.Held = append(result.Held, heldFrom(tier, d, ReasonAnomaly))
			case selector.Disabled:
				if d.HasNewer() {
					logger.Info("%s: autoupdate disabled, %s available (pinned %s)", d.Package, d.Selected, d.Current)
					result.Held = append(result.Held, heldFrom(tier, d, ReasonDisabled))
				}
			default:
				logger.Debug("%s %s is up to date", d.Package, d.Current)
			}
		}
	}

	if u.held != nil {
		if err := u.held.Replace(result.Held); err != nil {
			return result, err
		}
	}

	if result.Commits == 0 {
		logger.Info("Everything up to date")
	}
	return result, nil
}

// apply bumps one pin, lets the resolver reconcile the lockfile and commits
// both. On resolver failure the manifest and lockfile are restored.
func (u *Updater) apply(ctx context.Context, m *manifest.Manifest, tier manifest.Tier, d selector.Decision) error {
	scope, err := u.scopeFor(d)
	if err != nil {
		return err
	}

	manifestSnapshot := m.Bytes()
	lockSnapshot, lockErr := os.ReadFile(u.project.LockfilePath())

	if err := m.SetPinned(tier, d.Package, d.Selected); err != nil {
		return err
	}

	outcome, err := u.resolver.Apply(ctx, scope)
	if err != nil {
		restoreErr := m.Restore(manifestSnapshot)
		switch {
		case lockErr == nil:
			restoreErr = errors.Join(restoreErr, os.WriteFile(u.project.LockfilePath(), lockSnapshot, 0644))
		case os.IsNotExist(lockErr):
			os.Remove(u.project.LockfilePath())
		}
		if restoreErr != nil {
			return errors.Join(fmt.Errorf("updating %s to %s: %w", d.Package, d.Selected, err), restoreErr)
		}
		return fmt.Errorf("updating %s to %s: %w", d.Package, d.Selected, err)
	}

	paths := []string{u.project.Manifest}
	if outcome.TouchedFile(u.project.Lockfile) {
		paths = append(paths, u.project.Lockfile)
	}

	change := recorder.Change{
		Paths:   paths,
		Message: recorder.Message(fmt.Sprintf("dependencies: Update %s to %s", d.Package, d.Selected), outcome.Summary),
	}
	if err := u.recorder.Commit(change); err != nil {
		return err
	}

	logger.Info("Updated %s %s -> %s", d.Package, d.Current, d.Selected)
	return nil
}

// scopeFor returns the resolver scope of a package. When the lockfile holds
// the package in several versions the pinned one is named explicitly.
func (u *Updater) scopeFor(d selector.Decision) (resolver.Scope, error) {
	entries, err := lockfile.Read(u.project.LockfilePath())
	if err != nil {
		if errors.Is(err, lockfile.ErrIO) {
			// No lockfile yet; the resolver creates it
			return resolver.Package(d.Package, ""), nil
		}
		return resolver.Scope{}, err
	}
	if lockfile.Duplicates(entries)[d.Package] {
		return resolver.Package(d.Package, d.Current.String()), nil
	}
	return resolver.Package(d.Package, ""), nil
}

// Check applies the policy without touching anything. Index records are
// fetched concurrently; decisions come back in the same order as Run.
func (u *Updater) Check(ctx context.Context) ([]Report, error) {
	m, err := manifest.Open(u.project.ManifestPath())
	if err != nil {
		return nil, err
	}

	var deps []manifest.Dependency
	for _, tier := range manifest.Tiers() {
		for _, dep := range m.Dependencies(tier) {
			if dep.IsPinned() {
				deps = append(deps, dep)
			}
		}
	}

	var mu sync.Mutex
	records := make(map[string][]index.Record, len(deps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.prefetch)
	for _, dep := range deps {
		name := dep.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := u.index.Lookup(name)
			if err != nil {
				return fmt.Errorf("looking up %s: %w", name, err)
			}
			mu.Lock()
			records[name] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(deps))
	for _, dep := range deps {
		reports = append(reports, Report{
			Tier:     dep.Tier,
			Decision: u.selector.Decide(dep.Name, dep.Pinned, records[dep.Name]),
		})
	}
	return reports, nil
}

func heldFrom(tier manifest.Tier, d selector.Decision, reason HoldReason) HeldUpdate {
	return HeldUpdate{
		Package:          d.Package,
		Tier:             tier,
		CurrentVersion:   d.Current.String(),
		AvailableVersion: d.Selected.String(),
		Reason:           reason,
	}
}
