// Package semver parses and orders the semantic versions published in the
// crate index and pinned in Cargo manifests.
package semver

import (
	"errors"
	"fmt"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a string is not a full MAJOR.MINOR.PATCH version
var ErrInvalidVersion = errors.New("invalid semantic version")

// Version is a parsed semantic version.
// The zero value is not a valid version; use Parse or MustParse.
type Version struct {
	raw string
	// canonical is the "v"-prefixed form understood by x/mod/semver
	canonical string
}

// Parse parses a strict semantic version (MAJOR.MINOR.PATCH with optional
// prerelease and build metadata). Shorthands like "1.2" are rejected.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "v") {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	v := "v" + s
	if !xsemver.IsValid(v) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	// Canonical expands shorthands and drops build metadata, so a strict
	// version is one that survives the round trip unchanged.
	withoutBuild := strings.TrimSuffix(v, xsemver.Build(v))
	if xsemver.Canonical(v) != withoutBuild {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	return Version{raw: s, canonical: v}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was written
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero Version
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Prerelease returns the prerelease tag without the leading "-", or ""
func (v Version) Prerelease() string {
	return strings.TrimPrefix(xsemver.Prerelease(v.canonical), "-")
}

// IsPrerelease reports whether v carries a prerelease tag
func (v Version) IsPrerelease() bool {
	return v.Prerelease() != ""
}

// Compare returns -1, 0 or +1 following semver precedence.
// Build metadata does not take part in the ordering.
func (v Version) Compare(other Version) int {
	return xsemver.Compare(v.canonical, other.canonical)
}

// Equal reports whether v and other have the same precedence
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports whether v orders before other
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Max returns the highest version of vs, or false when vs is empty
func Max(vs ...Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best, true
}
