package autoupdate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obentoo/depsync/internal/common/semver"
	"github.com/obentoo/depsync/internal/index"
	"github.com/obentoo/depsync/internal/lockfile"
	"github.com/obentoo/depsync/internal/recorder"
	"github.com/obentoo/depsync/internal/resolver"
)

const registrySource = "registry+https://github.com/rust-lang/crates.io-index"

// fakeIndex serves records from memory
type fakeIndex map[string][]string

func (f fakeIndex) Lookup(name string) ([]index.Record, error) {
	versions, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", index.ErrNotFound, name)
	}
	records := make([]index.Record, len(versions))
	for i, v := range versions {
		records[i] = index.Record{Name: name, Version: semver.MustParse(v)}
	}
	return records, nil
}

// fakeRecorder captures changes instead of committing them
type fakeRecorder struct {
	changes  []recorder.Change
	cleanErr error
	commitFn func(recorder.Change) error
}

func (f *fakeRecorder) EnsureClean(paths ...string) error {
	return f.cleanErr
}

func (f *fakeRecorder) Commit(change recorder.Change) error {
	if f.commitFn != nil {
		if err := f.commitFn(change); err != nil {
			return err
		}
	}
	f.changes = append(f.changes, change)
	return nil
}

func (f *fakeRecorder) subjects() []string {
	out := make([]string, len(f.changes))
	for i, c := range f.changes {
		out[i], _, _ = strings.Cut(c.Message, "\n")
	}
	return out
}

func renderLock(entries []lockfile.Entry) string {
	var b strings.Builder
	b.WriteString("version = 3\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n[[package]]\nname = %q\nversion = %q\n", e.Name, e.Version)
		if e.Source != "" {
			fmt.Fprintf(&b, "source = %q\n", e.Source)
		}
	}
	return b.String()
}

// newProject writes a manifest and lockfile into a temp dir
func newProject(t *testing.T, manifestContent string, entries []lockfile.Entry) Project {
	t.Helper()
	p := NewProject(t.TempDir())
	writeFile(t, p.ManifestPath(), manifestContent)
	writeFile(t, p.LockfilePath(), renderLock(entries))
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// simulatedCargo updates lockfile entries towards target versions. An entry
// listed in requires only moves once its prerequisite reached its target,
// which models updates that unlock further updates.
type simulatedCargo struct {
	project  Project
	targets  map[string]string
	requires map[string]string
	calls    []resolver.Scope
}

func (s *simulatedCargo) Apply(ctx context.Context, scope resolver.Scope) (*resolver.Outcome, error) {
	s.calls = append(s.calls, scope)

	entries, err := lockfile.Read(s.project.LockfilePath())
	if err != nil {
		return nil, err
	}
	current := make(map[string]string, len(entries))
	for _, e := range entries {
		current[e.Name] = e.Version
	}

	target, ok := s.targets[scope.Name]
	if !ok || current[scope.Name] == target {
		return &resolver.Outcome{}, nil
	}
	if pre, ok := s.requires[scope.Name]; ok && current[pre] != s.targets[pre] {
		return &resolver.Outcome{}, nil
	}

	for i := range entries {
		if entries[i].Name == scope.Name {
			entries[i].Version = target
		}
	}
	if err := os.WriteFile(s.project.LockfilePath(), []byte(renderLock(entries)), 0644); err != nil {
		return nil, err
	}

	return &resolver.Outcome{
		Changed: true,
		Touched: []string{s.project.Lockfile},
		Summary: []string{fmt.Sprintf("Updating %s v%s -> v%s", scope.Name, current[scope.Name], target)},
	}, nil
}

var _ resolver.Invoker = (*simulatedCargo)(nil)
