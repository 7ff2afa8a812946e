package autoupdate

import (
	"path/filepath"

	"github.com/obentoo/depsync/internal/index"
	"github.com/obentoo/depsync/internal/recorder"
)

// Project locates the files of the Cargo project being updated
type Project struct {
	// Dir is the project directory
	Dir string
	// Manifest is the manifest file, relative to Dir
	Manifest string
	// Lockfile is the lockfile, relative to Dir
	Lockfile string
}

// NewProject returns a project in dir with the standard Cargo file names
func NewProject(dir string) Project {
	return Project{Dir: dir, Manifest: "Cargo.toml", Lockfile: "Cargo.lock"}
}

// ManifestPath returns the full manifest path
func (p Project) ManifestPath() string {
	return filepath.Join(p.Dir, p.Manifest)
}

// LockfilePath returns the full lockfile path
func (p Project) LockfilePath() string {
	return filepath.Join(p.Dir, p.Lockfile)
}

// IndexLookup returns the published records of a package
type IndexLookup interface {
	Lookup(name string) ([]index.Record, error)
}

// Committer records one change per commit
type Committer interface {
	EnsureClean(paths ...string) error
	Commit(change recorder.Change) error
}

var (
	_ IndexLookup = (*index.Reader)(nil)
	_ Committer   = (*recorder.Recorder)(nil)
)
