// Package manifest reads and surgically rewrites the dependency pins of a
// Cargo manifest.
//
// The manifest is edited by people as well, so rewriting a pin only ever
// replaces the characters of that one version string. Comments, ordering,
// spacing and every other entry are left byte-for-byte intact.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/obentoo/depsync/internal/common/semver"
)

// Error variables for manifest operations
var (
	// ErrParse is returned when the manifest is not valid TOML
	ErrParse = errors.New("failed to parse manifest")
	// ErrIO is returned when the manifest cannot be read or written
	ErrIO = errors.New("manifest I/O failed")
	// ErrDependencyNotFound is returned when a tier has no entry for a name
	ErrDependencyNotFound = errors.New("dependency not found in manifest")
	// ErrNotPinned is returned when an entry has no version that can be rewritten
	ErrNotPinned = errors.New("dependency has no pinned version")
	// ErrRewriteFailed is returned when a rewrite would change more than the target entry
	ErrRewriteFailed = errors.New("manifest rewrite verification failed")
)

// Tier is the dependency table an entry belongs to
type Tier string

// Dependency tiers
const (
	Runtime Tier = "runtime"
	Dev     Tier = "dev"
)

// Tiers returns the tiers in processing order
func Tiers() []Tier {
	return []Tier{Runtime, Dev}
}

// Table returns the manifest table holding the tier
func (t Tier) Table() string {
	if t == Dev {
		return "dev-dependencies"
	}
	return "dependencies"
}

// Dependency is one entry of a dependency table
type Dependency struct {
	// Name is the key of the entry
	Name string
	// Tier is the table the entry lives in
	Tier Tier
	// Requirement is the raw version requirement, e.g. "=1.2.3"
	Requirement string
	// Pinned is the version in Requirement; zero if it is not a single version
	Pinned semver.Version
}

// IsPinned reports whether the entry carries a single rewritable version
func (d Dependency) IsPinned() bool {
	return !d.Pinned.IsZero()
}

// Manifest is a parsed Cargo.toml
type Manifest struct {
	path string
	data []byte
	mode os.FileMode
	doc  map[string]interface{}
	deps map[Tier][]Dependency
}

// Open reads and parses the manifest at path
func Open(path string) (*Manifest, error) {
	m := &Manifest{path: path}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Path returns the manifest file path
func (m *Manifest) Path() string {
	return m.path
}

// Reload re-reads the manifest from disk
func (m *Manifest) Reload() error {
	info, err := os.Stat(m.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	doc, deps, err := parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrParse, m.path, err)
	}

	m.data = data
	m.mode = info.Mode().Perm()
	m.doc = doc
	m.deps = deps
	return nil
}

// Bytes returns the manifest content as last read or written
func (m *Manifest) Bytes() []byte {
	return m.data
}

// Dependencies returns the entries of a tier in document order
func (m *Manifest) Dependencies(tier Tier) []Dependency {
	return append([]Dependency(nil), m.deps[tier]...)
}

// Pinned returns the pinned version of name in tier
func (m *Manifest) Pinned(tier Tier, name string) (semver.Version, error) {
	for _, d := range m.deps[tier] {
		if d.Name != name {
			continue
		}
		if !d.IsPinned() {
			return semver.Version{}, fmt.Errorf("%w: %s", ErrNotPinned, name)
		}
		return d.Pinned, nil
	}
	return semver.Version{}, fmt.Errorf("%w: [%s] %s", ErrDependencyNotFound, tier.Table(), name)
}

// SetPinned rewrites the version of name in tier, keeping its requirement
// operator and quoting. The file is only written if re-parsing the result
// shows that nothing but this one value changed.
func (m *Manifest) SetPinned(tier Tier, name string, version semver.Version) error {
	if _, err := m.Pinned(tier, name); err != nil {
		return err
	}

	updated, err := rewritePin(m.data, tier.Table(), name, version.String())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRewriteFailed, name, err)
	}

	doc, deps, err := parse(updated)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRewriteFailed, name, err)
	}
	if err := verifyRewrite(m.doc, doc, tier.Table(), name, version.String()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRewriteFailed, name, err)
	}

	if err := writeAtomic(m.path, updated, m.mode); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	m.data = updated
	m.doc = doc
	m.deps = deps
	return nil
}

// Restore writes data back to the manifest, used to undo a pin change whose
// resolution failed.
func (m *Manifest) Restore(data []byte) error {
	if err := writeAtomic(m.path, data, m.mode); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return m.Reload()
}

// parse decodes the manifest and collects dependency entries in document order
func parse(data []byte) (map[string]interface{}, map[Tier][]Dependency, error) {
	var doc map[string]interface{}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, nil, err
	}

	deps := make(map[Tier][]Dependency)
	for _, tier := range Tiers() {
		table, _ := doc[tier.Table()].(map[string]interface{})
		if table == nil {
			continue
		}

		seen := make(map[string]bool)
		for _, key := range md.Keys() {
			if len(key) < 2 || key[0] != tier.Table() || seen[key[1]] {
				continue
			}
			name := key[1]
			seen[name] = true

			req, ok := requirementOf(table[name])
			if !ok {
				// path, git and workspace dependencies carry no version
				continue
			}

			deps[tier] = append(deps[tier], Dependency{
				Name:        name,
				Tier:        tier,
				Requirement: req,
				Pinned:      pinnedVersion(req),
			})
		}
	}

	return doc, deps, nil
}

// requirementOf extracts the version requirement of a dependency value
func requirementOf(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]interface{}:
		req, ok := v["version"].(string)
		return req, ok
	}
	return "", false
}

// pinnedVersion returns the version of a single-version requirement such as
// "=1.2.3", "^1.2.3" or "1.2.3"; ranges and partial versions give zero.
func pinnedVersion(req string) semver.Version {
	_, rest := splitOperator(req)
	v, err := semver.Parse(rest)
	if err != nil {
		return semver.Version{}
	}
	return v
}

// splitOperator separates a leading requirement operator from the version
func splitOperator(req string) (op, rest string) {
	trimmed := strings.TrimLeft(req, "=^~ \t")
	return req[:len(req)-len(trimmed)], trimmed
}

// verifyRewrite checks that after differs from before only in the version of name
func verifyRewrite(before, after map[string]interface{}, table, name, version string) error {
	entry, ok := after[table].(map[string]interface{})
	if !ok {
		return fmt.Errorf("table [%s] missing after rewrite", table)
	}
	req, ok := requirementOf(entry[name])
	if !ok {
		return errors.New("entry lost its version")
	}
	if _, rest := splitOperator(req); rest != version {
		return fmt.Errorf("entry has version %q, want %q", rest, version)
	}

	// Put the old requirement back and the documents must be identical
	oldTable := before[table].(map[string]interface{})
	oldReq, _ := requirementOf(oldTable[name])
	restored := setRequirement(after, table, name, oldReq)
	if !reflect.DeepEqual(before, restored) {
		return errors.New("other entries changed")
	}
	return nil
}

// setRequirement returns a copy of doc with the requirement of name replaced
func setRequirement(doc map[string]interface{}, table, name, req string) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	oldTable := doc[table].(map[string]interface{})
	newTable := make(map[string]interface{}, len(oldTable))
	for k, v := range oldTable {
		newTable[k] = v
	}

	switch v := oldTable[name].(type) {
	case string:
		newTable[name] = req
	case map[string]interface{}:
		entry := make(map[string]interface{}, len(v))
		for k, val := range v {
			entry[k] = val
		}
		entry["version"] = req
		newTable[name] = entry
	}

	out[table] = newTable
	return out
}

// writeAtomic writes data to a temp file next to path and renames it into place
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	if mode == 0 {
		mode = 0644
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Clean up temp file on rename failure
		os.Remove(tmpPath)
		return err
	}
	return nil
}
