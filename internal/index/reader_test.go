package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardPath(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"a", "1/a"},
		{"ab", "2/ab"},
		{"abc", "3/a/abc"},
		{"abcd", "ab/cd/abcd"},
		{"serde", "se/rd/serde"},
		{"serde_json", "se/rd/serde_json"},
		{"Inflector", "in/fl/inflector"},
		{"syn", "3/s/syn"},
		{"cc", "2/cc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShardPath(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestShardPathRejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"", "../etc", "a/b", "with space", "crate.name"} {
		t.Run(name, func(t *testing.T) {
			_, err := ShardPath(name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestPropertyShardPath(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genName := gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })

	properties.Property("path ends with the lowercased name", prop.ForAll(
		func(name string) bool {
			p, err := ShardPath(name)
			return err == nil && strings.HasSuffix(p, "/"+strings.ToLower(name))
		},
		genName,
	))

	properties.Property("bucket depends only on name length", prop.ForAll(
		func(name string) bool {
			p, _ := ShardPath(name)
			parts := strings.Split(p, "/")
			lower := strings.ToLower(name)
			switch len(name) {
			case 1:
				return len(parts) == 2 && parts[0] == "1"
			case 2:
				return len(parts) == 2 && parts[0] == "2"
			case 3:
				return len(parts) == 3 && parts[0] == "3" && parts[1] == lower[:1]
			default:
				return len(parts) == 3 && parts[0] == lower[:2] && parts[1] == lower[2:4]
			}
		},
		genName,
	))

	properties.TestingRun(t)
}

// writeIndexFile writes lines under the shard path of name in root
func writeIndexFile(t *testing.T, root, name string, lines ...string) {
	t.Helper()
	rel, err := ShardPath(name)
	require.NoError(t, err)
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestReaderLookup(t *testing.T) {
	root := t.TempDir()
	writeIndexFile(t, root, "serde",
		`{"name":"serde","vers":"1.0.0","deps":[],"cksum":"aa","features":{},"yanked":false}`,
		`{"name":"serde","vers":"1.0.1","deps":[],"cksum":"bb","features":{},"yanked":true}`,
		`{"name":"serde","vers":"1.1.0-beta.1","deps":[],"cksum":"cc","features":{},"yanked":false}`,
	)

	reader, err := NewReader(root)
	require.NoError(t, err)

	records, err := reader.Lookup("serde")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1.0.0", records[0].Version.String())
	assert.False(t, records[0].Yanked)
	assert.True(t, records[1].Yanked)
	assert.True(t, records[2].IsPrerelease())
	assert.Equal(t, "serde", records[2].Name)
}

func TestReaderLookupNotFound(t *testing.T) {
	reader, err := NewReader(t.TempDir())
	require.NoError(t, err)

	_, err = reader.Lookup("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReaderLookupMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"invalid json", `{"name":"broken","vers":`},
		{"missing vers", `{"name":"broken"}`},
		{"invalid version", `{"name":"broken","vers":"1.0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeIndexFile(t, root, "broken",
				`{"name":"broken","vers":"0.1.0"}`,
				tt.line,
			)

			reader, err := NewReader(root)
			require.NoError(t, err)

			_, err = reader.Lookup("broken")
			require.ErrorIs(t, err, ErrMalformedRecord)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, 2, parseErr.Line)
		})
	}
}

func TestReaderCachesRecords(t *testing.T) {
	root := t.TempDir()
	writeIndexFile(t, root, "log", `{"name":"log","vers":"0.4.20"}`)

	reader, err := NewReader(root, WithCacheSize(8))
	require.NoError(t, err)

	first, err := reader.Lookup("log")
	require.NoError(t, err)

	// Removing the file proves the second lookup is served from memory
	path, err := reader.Path("log")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := reader.Lookup("log")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReaderWithoutCache(t *testing.T) {
	root := t.TempDir()
	writeIndexFile(t, root, "log", `{"name":"log","vers":"0.4.20"}`)

	reader, err := NewReader(root, WithCacheSize(0))
	require.NoError(t, err)

	_, err = reader.Lookup("log")
	require.NoError(t, err)

	path, err := reader.Path("log")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = reader.Lookup("log")
	assert.ErrorIs(t, err, ErrNotFound)
}
