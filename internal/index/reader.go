// Package index reads published crate versions from a local checkout of the
// crates.io registry index.
//
// The index stores one file per crate. Each line of that file is a JSON
// object describing one published version. Files are sharded by name:
//
//	1/a           one-character names
//	2/ab          two-character names
//	3/a/abc       three-character names, keyed by the first character
//	ab/cd/abcd    everything longer, keyed by the first four characters
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Error variables for index lookups
var (
	// ErrNotFound is returned when the index has no file for a crate
	ErrNotFound = errors.New("crate not found in index")
	// ErrInvalidName is returned for names that cannot be mapped to an index path
	ErrInvalidName = errors.New("invalid crate name")
)

// DefaultCacheSize is the number of crates whose records are kept in memory
const DefaultCacheSize = 256

var crateNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ShardPath returns the slash-separated path of name's record file,
// relative to the index root.
func ShardPath(name string) (string, error) {
	if !crateNameRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	name = strings.ToLower(name)
	switch len(name) {
	case 1:
		return "1/" + name, nil
	case 2:
		return "2/" + name, nil
	case 3:
		return "3/" + name[:1] + "/" + name, nil
	default:
		return name[0:2] + "/" + name[2:4] + "/" + name, nil
	}
}

// Reader looks up crates in an index directory.
// The index is treated as an immutable snapshot, so parsed records are cached.
type Reader struct {
	root  string
	cache *lru.Cache[string, []Record]
}

// ReaderOption is a functional option for configuring Reader
type ReaderOption func(*Reader) error

// WithCacheSize sets how many crates are cached. Zero disables caching.
func WithCacheSize(size int) ReaderOption {
	return func(r *Reader) error {
		if size <= 0 {
			r.cache = nil
			return nil
		}
		cache, err := lru.New[string, []Record](size)
		if err != nil {
			return err
		}
		r.cache = cache
		return nil
	}
}

// NewReader creates a Reader for the index checked out at root
func NewReader(root string, opts ...ReaderOption) (*Reader, error) {
	cache, err := lru.New[string, []Record](DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		root:  root,
		cache: cache,
	}

	for _, opt := range opts {
		if err := opt(reader); err != nil {
			return nil, fmt.Errorf("failed to apply reader option: %w", err)
		}
	}

	return reader, nil
}

// Root returns the index directory
func (r *Reader) Root() string {
	return r.root
}

// Path returns the record file location for name
func (r *Reader) Path(name string) (string, error) {
	rel, err := ShardPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(rel)), nil
}

// Lookup returns every published version of name.
// Records come back in file order, which is not sorted.
func (r *Reader) Lookup(name string) ([]Record, error) {
	key := strings.ToLower(name)
	if r.cache != nil {
		if records, ok := r.cache.Get(key); ok {
			return slices.Clone(records), nil
		}
	}

	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read index file for %s: %w", name, err)
	}

	records, err := ParseRecords(path, data)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Add(key, records)
	}

	return slices.Clone(records), nil
}
