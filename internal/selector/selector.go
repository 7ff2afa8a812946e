// Package selector decides which published version a pinned dependency
// should move to.
package selector

import (
	"github.com/obentoo/depsync/internal/common/semver"
	"github.com/obentoo/depsync/internal/index"
)

// Outcome is the result of applying the selection policy to one dependency
type Outcome string

// Policy outcomes
const (
	// Upgrade means a newer eligible version exists
	Upgrade Outcome = "upgrade"
	// Hold means the pin is already the newest eligible version
	Hold Outcome = "hold"
	// Disabled means autoupdate is switched off for the package
	Disabled Outcome = "disabled"
	// Anomaly means the pin is ahead of everything in the index
	Anomaly Outcome = "anomaly"
)

// Decision is the policy result for one dependency
type Decision struct {
	// Package is the crate name
	Package string
	// Current is the pinned version
	Current semver.Version
	// Selected is the newest eligible version, zero if none is eligible
	Selected semver.Version
	// Outcome is what should happen to the pin
	Outcome Outcome
}

// HasNewer reports whether Selected is ahead of Current.
// For disabled packages this is the version worth reporting.
func (d Decision) HasNewer() bool {
	return !d.Selected.IsZero() && d.Current.Less(d.Selected)
}

// Select returns the highest candidate eligible for selection.
// Yanked versions are never eligible; prereleases only when allowPrerelease
// is set. It returns false when nothing is eligible.
func Select(candidates []index.Record, allowPrerelease bool) (semver.Version, bool) {
	var best semver.Version
	found := false

	for _, c := range candidates {
		if c.Yanked {
			continue
		}
		if c.IsPrerelease() && !allowPrerelease {
			continue
		}
		if !found || best.Less(c.Version) {
			best = c.Version
			found = true
		}
	}

	return best, found
}

// Selector applies the version policy with the configured package sets
type Selector struct {
	disabled   map[string]struct{}
	prerelease map[string]struct{}
}

// Option is a functional option for configuring Selector
type Option func(*Selector)

// WithDisabled marks packages whose pins must never be changed automatically
func WithDisabled(names ...string) Option {
	return func(s *Selector) {
		for _, n := range names {
			s.disabled[n] = struct{}{}
		}
	}
}

// WithPrerelease opts packages into prerelease candidates even while they
// are pinned to a release
func WithPrerelease(names ...string) Option {
	return func(s *Selector) {
		for _, n := range names {
			s.prerelease[n] = struct{}{}
		}
	}
}

// New creates a Selector
func New(opts ...Option) *Selector {
	s := &Selector{
		disabled:   make(map[string]struct{}),
		prerelease: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsDisabled reports whether autoupdate is disabled for name
func (s *Selector) IsDisabled(name string) bool {
	_, ok := s.disabled[name]
	return ok
}

// Decide applies the policy to one dependency.
//
// Prerelease candidates are only eligible once the current pin is itself a
// prerelease (or the package opted in). A maximum below the pin is reported
// as an anomaly and never turned into a downgrade.
func (s *Selector) Decide(name string, current semver.Version, candidates []index.Record) Decision {
	_, optedIn := s.prerelease[name]
	allow := current.IsPrerelease() || optedIn

	decision := Decision{
		Package: name,
		Current: current,
	}

	best, ok := Select(candidates, allow)
	if ok {
		decision.Selected = best
	}

	switch {
	case s.IsDisabled(name):
		decision.Outcome = Disabled
	case !ok:
		decision.Outcome = Hold
	case best.Equal(current):
		decision.Outcome = Hold
	case best.Less(current):
		decision.Outcome = Anomaly
	default:
		decision.Outcome = Upgrade
	}

	return decision
}
