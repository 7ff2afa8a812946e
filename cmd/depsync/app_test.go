package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/obentoo/depsync/internal/common/config"
	"github.com/obentoo/depsync/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFlags sets the global flag values for the duration of a test
func withFlags(t *testing.T, config, project, index string) {
	t.Helper()
	oldConfig, oldProject, oldIndex := configPath, projectPath, indexPath
	configPath, projectPath, indexPath = config, project, index
	t.Cleanup(func() {
		configPath, projectPath, indexPath = oldConfig, oldProject, oldIndex
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	cfgPath := writeConfig(t, "project:\n  path: /from/file\nindex:\n  path: /index/from/file\n")

	withFlags(t, cfgPath, "", "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.Project.Path)
	assert.Equal(t, "/index/from/file", cfg.Index.Path)

	withFlags(t, cfgPath, "/from/flag", "/index/from/flag")
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Project.Path)
	assert.Equal(t, "/index/from/flag", cfg.Index.Path)
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	withFlags(t, filepath.Join(t.TempDir(), "missing.yaml"), "", "")

	_, err := loadConfig()
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestNewAppWiresProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0644))
	indexDir := t.TempDir()

	cfg := config.Default()
	cfg.Project.Path = dir
	cfg.Index.Path = indexDir
	cfg.Autoupdate.MaxPasses = 3

	a, err := newApp(cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, a.project.Dir)
	assert.Equal(t, "Cargo.toml", a.project.Manifest)
	assert.Equal(t, "Cargo.lock", a.project.Lockfile)
	assert.Equal(t, indexDir, a.indexPath)
	assert.Equal(t, []string{"cargo", "update", "--offline", "--package", "serde@1.0.0"},
		a.cargo.Args(resolver.Package("serde", "1.0.0")))
	assert.True(t, a.selector.IsDisabled("clap"))

	require.NoError(t, a.openIndex())
	assert.Equal(t, indexDir, a.reader.Root())

	u, err := a.updater(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, u)
	assert.NotNil(t, a.converger())
}

func TestNewAppRequiresManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Project.Path = t.TempDir()

	_, err := newApp(cfg)
	assert.ErrorIs(t, err, config.ErrNoManifest)
}

func TestOpenIndexMissingCheckout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\n"), 0644))

	cfg := config.Default()
	cfg.Project.Path = dir
	cfg.Index.Path = filepath.Join(t.TempDir(), "absent")

	a, err := newApp(cfg)
	require.NoError(t, err)

	err = a.openIndex()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depsync index refresh")
}
