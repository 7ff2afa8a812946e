// Package lockfile reads the resolved package set of a Cargo.lock file.
package lockfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pelletier/go-toml/v2"
)

// Error variables for lockfile operations
var (
	// ErrParse is returned when the lockfile is not valid TOML
	ErrParse = errors.New("failed to parse lockfile")
	// ErrIO is returned when the lockfile cannot be read
	ErrIO = errors.New("lockfile I/O failed")
)

// Entry is one [[package]] of the lockfile
type Entry struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source"`
}

// IsRegistry reports whether the entry comes from a registry or git source.
// Workspace and path members carry no source and cannot be updated.
func (e Entry) IsRegistry() bool {
	return e.Source != ""
}

// String returns name@version
func (e Entry) String() string {
	return e.Name + "@" + e.Version
}

type document struct {
	Version  int     `toml:"version"`
	Packages []Entry `toml:"package"`
}

// Read parses the lockfile at path and returns its entries in file order
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return Parse(path, data)
}

// Parse decodes lockfile content. path is only used in error messages.
func Parse(path string, data []byte) ([]Entry, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: %s:%d:%d: %v", ErrParse, path, row, col, decodeErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	for i, e := range doc.Packages {
		if e.Name == "" || e.Version == "" {
			return nil, fmt.Errorf("%w: %s: package #%d has no name or version", ErrParse, path, i+1)
		}
	}
	return doc.Packages, nil
}

// Duplicates returns the names that appear with more than one version.
// The resolver needs name@version to address those unambiguously.
func Duplicates(entries []Entry) map[string]bool {
	count := make(map[string]int, len(entries))
	for _, e := range entries {
		count[e.Name]++
	}
	dups := make(map[string]bool)
	for name, n := range count {
		if n > 1 {
			dups[name] = true
		}
	}
	return dups
}

// Fingerprint returns the xxhash of the file at path. A missing file has
// fingerprint 0.
func Fingerprint(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return h.Sum64(), nil
}
