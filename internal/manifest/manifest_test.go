package manifest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/obentoo/depsync/internal/common/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `[package]
name = "grm"
version = "0.7.15"
edition = "2021"

# Pinned on purpose, see CONTRIBUTING
[dependencies]
toml   = "=0.8.8"
serde = { version = "=1.0.193", features = ["derive"] }
git2 = {   version='=0.18.1',default-features=false }
local = { path = "../local" }
"quoted-name" = "=2.0.0"
regex = "^1.10.2" # trailing comment

[dependencies.clap]
version = "=4.4.11"
features = [
    "derive",
    "cargo",
]

[dev-dependencies]
tempdir = "=0.3.7"
toml = "=0.8.8"

[target.'cfg(unix)'.dependencies]
libc = "=0.2.150"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpenDependencies(t *testing.T) {
	m, err := Open(writeManifest(t, sampleManifest))
	require.NoError(t, err)

	var names []string
	for _, d := range m.Dependencies(Runtime) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"toml", "serde", "git2", "quoted-name", "regex", "clap"}, names)

	var devNames []string
	for _, d := range m.Dependencies(Dev) {
		devNames = append(devNames, d.Name)
	}
	assert.Equal(t, []string{"tempdir", "toml"}, devNames)
}

func TestPinned(t *testing.T) {
	m, err := Open(writeManifest(t, sampleManifest))
	require.NoError(t, err)

	tests := []struct {
		tier    Tier
		name    string
		version string
	}{
		{Runtime, "toml", "0.8.8"},
		{Runtime, "serde", "1.0.193"},
		{Runtime, "git2", "0.18.1"},
		{Runtime, "quoted-name", "2.0.0"},
		{Runtime, "regex", "1.10.2"},
		{Runtime, "clap", "4.4.11"},
		{Dev, "tempdir", "0.3.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := m.Pinned(tt.tier, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.version, v.String())
		})
	}

	_, err = m.Pinned(Runtime, "tempdir")
	assert.ErrorIs(t, err, ErrDependencyNotFound)

	_, err = m.Pinned(Runtime, "libc")
	assert.ErrorIs(t, err, ErrDependencyNotFound, "target tables are not managed")
}

func TestSetPinnedPreservesEverythingElse(t *testing.T) {
	tests := []struct {
		name    string
		tier    Tier
		dep     string
		version string
		oldLine string
		newLine string
	}{
		{
			name: "plain string", tier: Runtime, dep: "toml", version: "0.8.10",
			oldLine: `toml   = "=0.8.8"`,
			newLine: `toml   = "=0.8.10"`,
		},
		{
			name: "inline table", tier: Runtime, dep: "serde", version: "1.0.200",
			oldLine: `serde = { version = "=1.0.193", features = ["derive"] }`,
			newLine: `serde = { version = "=1.0.200", features = ["derive"] }`,
		},
		{
			name: "inline table with literal string", tier: Runtime, dep: "git2", version: "0.19.0",
			oldLine: `git2 = {   version='=0.18.1',default-features=false }`,
			newLine: `git2 = {   version='=0.19.0',default-features=false }`,
		},
		{
			name: "quoted key", tier: Runtime, dep: "quoted-name", version: "2.1.0",
			oldLine: `"quoted-name" = "=2.0.0"`,
			newLine: `"quoted-name" = "=2.1.0"`,
		},
		{
			name: "caret requirement with comment", tier: Runtime, dep: "regex", version: "1.11.0",
			oldLine: `regex = "^1.10.2" # trailing comment`,
			newLine: `regex = "^1.11.0" # trailing comment`,
		},
		{
			name: "dotted section", tier: Runtime, dep: "clap", version: "4.5.0",
			oldLine: `version = "=4.4.11"`,
			newLine: `version = "=4.5.0"`,
		},
		{
			name: "same name in dev tier", tier: Dev, dep: "toml", version: "0.9.0",
			oldLine: "[dev-dependencies]\ntempdir = \"=0.3.7\"\ntoml = \"=0.8.8\"",
			newLine: "[dev-dependencies]\ntempdir = \"=0.3.7\"\ntoml = \"=0.9.0\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, sampleManifest)
			m, err := Open(path)
			require.NoError(t, err)

			require.NoError(t, m.SetPinned(tt.tier, tt.dep, semver.MustParse(tt.version)))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			expected := strings.Replace(sampleManifest, tt.oldLine, tt.newLine, 1)
			assert.Equal(t, expected, string(got))

			v, err := m.Pinned(tt.tier, tt.dep)
			require.NoError(t, err)
			assert.Equal(t, tt.version, v.String())

			reopened, err := Open(path)
			require.NoError(t, err)
			v, err = reopened.Pinned(tt.tier, tt.dep)
			require.NoError(t, err)
			assert.Equal(t, tt.version, v.String())
		})
	}
}

func TestSetPinnedErrors(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Open(path)
	require.NoError(t, err)

	err = m.SetPinned(Runtime, "missing", semver.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrDependencyNotFound)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest, string(got))
}

func TestUnpinnedRequirement(t *testing.T) {
	m, err := Open(writeManifest(t, "[dependencies]\nrand = \">=0.8, <0.9\"\n"))
	require.NoError(t, err)

	deps := m.Dependencies(Runtime)
	require.Len(t, deps, 1)
	assert.False(t, deps[0].IsPinned())

	err = m.SetPinned(Runtime, "rand", semver.MustParse("0.8.5"))
	assert.ErrorIs(t, err, ErrNotPinned)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "Cargo.toml"))
	assert.ErrorIs(t, err, ErrIO)

	_, err = Open(writeManifest(t, "[dependencies\nserde = "))
	assert.ErrorIs(t, err, ErrParse)
}

func TestSetPinnedKeepsFileMode(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	require.NoError(t, os.Chmod(path, 0600))

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.SetPinned(Runtime, "toml", semver.MustParse("0.8.9")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestRestore(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Open(path)
	require.NoError(t, err)

	snapshot := m.Bytes()
	require.NoError(t, m.SetPinned(Runtime, "toml", semver.MustParse("0.9.0")))
	require.NoError(t, m.Restore(snapshot))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest, string(got))

	v, err := m.Pinned(Runtime, "toml")
	require.NoError(t, err)
	assert.Equal(t, "0.8.8", v.String())
}

func TestPropertySetPinnedOnlyTouchesOneLine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	names := []string{"toml", "serde", "git2", "quoted-name", "regex", "clap"}

	properties.Property("rewriting a pin changes exactly one line", prop.ForAll(
		func(idx, major, minor, patch int) bool {
			dir, err := os.MkdirTemp("", "manifest-prop-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			path := filepath.Join(dir, "Cargo.toml")
			if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
				return false
			}
			m, err := Open(path)
			if err != nil {
				return false
			}

			v := semver.MustParse(strings.Join([]string{strconv.Itoa(major), strconv.Itoa(minor), strconv.Itoa(patch)}, "."))
			if err := m.SetPinned(Runtime, names[idx], v); err != nil {
				t.Logf("SetPinned failed: %v", err)
				return false
			}

			before := strings.Split(sampleManifest, "\n")
			after := strings.Split(string(m.Bytes()), "\n")
			if len(before) != len(after) {
				return false
			}
			diff := 0
			for i := range before {
				if before[i] != after[i] {
					diff++
				}
			}
			// Rewriting to the same version is a legal no-op
			return diff <= 1
		},
		gen.IntRange(0, len(names)-1),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}
