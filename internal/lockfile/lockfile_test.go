package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLock = `# This file is automatically @generated by Cargo.
# It is not intended for manual editing.
version = 3

[[package]]
name = "grm"
version = "0.7.15"
dependencies = [
 "serde",
]

[[package]]
name = "serde"
version = "1.0.193"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "25dd9975e68d0cb5aa1120c288333fc98731bd1dd12f561e468ea4728c042b89"
dependencies = [
 "serde_derive",
]

[[package]]
name = "syn"
version = "1.0.109"
source = "registry+https://github.com/rust-lang/crates.io-index"

[[package]]
name = "syn"
version = "2.0.39"
source = "registry+https://github.com/rust-lang/crates.io-index"
`

func writeLock(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRead(t *testing.T) {
	entries, err := Read(writeLock(t, sampleLock))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Name: "grm", Version: "0.7.15"}, entries[0])
	assert.False(t, entries[0].IsRegistry())

	assert.Equal(t, "serde", entries[1].Name)
	assert.True(t, entries[1].IsRegistry())
	assert.Equal(t, "serde@1.0.193", entries[1].String())

	assert.Equal(t, "2.0.39", entries[3].Version)
}

func TestReadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), "Cargo.lock"))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("invalid toml reports position", func(t *testing.T) {
		_, err := Read(writeLock(t, "version = 3\n\n[[package]\nname = \"x\"\n"))
		require.ErrorIs(t, err, ErrParse)
		assert.Regexp(t, `Cargo\.lock:\d+:\d+`, err.Error())
	})

	t.Run("package without version", func(t *testing.T) {
		_, err := Read(writeLock(t, "[[package]]\nname = \"x\"\n"))
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestDuplicates(t *testing.T) {
	entries, err := Parse("Cargo.lock", []byte(sampleLock))
	require.NoError(t, err)

	dups := Duplicates(entries)
	assert.Equal(t, map[string]bool{"syn": true}, dups)
}

func TestFingerprint(t *testing.T) {
	path := writeLock(t, sampleLock)

	first, err := Fingerprint(path)
	require.NoError(t, err)
	assert.NotZero(t, first)

	again, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte(sampleLock+"\n"), 0644))
	changed, err := Fingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	missing, err := Fingerprint(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, missing)
}
