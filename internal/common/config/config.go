package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obentoo/depsync/internal/index"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound  = errors.New("config file does not exist")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrProjectNotFound = errors.New("project directory does not exist")
	ErrNoManifest      = errors.New("project has no manifest")
)

// DefaultIndexURL is the upstream cloned by 'depsync index refresh'
const DefaultIndexURL = index.DefaultURL

// Config represents the application configuration
type Config struct {
	Project    ProjectConfig    `yaml:"project"`
	Index      IndexConfig      `yaml:"index"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Autoupdate AutoupdateConfig `yaml:"autoupdate"`
	Git        GitConfig        `yaml:"git"`
}

// ProjectConfig locates the Cargo project
type ProjectConfig struct {
	Path     string `yaml:"path"`
	Manifest string `yaml:"manifest"`
	Lockfile string `yaml:"lockfile"`
}

// IndexConfig holds package index settings
type IndexConfig struct {
	Path      string `yaml:"path"` // Local checkout; defaults to the XDG cache dir
	URL       string `yaml:"url"`
	CacheSize int    `yaml:"cache_size"` // Packages kept parsed in memory, 0 disables
}

// ResolverConfig holds the resolver command line
type ResolverConfig struct {
	Command       []string `yaml:"command"`
	PackageFlag   string   `yaml:"package_flag"`
	NoRefreshArgs []string `yaml:"no_refresh_args"`
}

// AutoupdateConfig holds the version policy
type AutoupdateConfig struct {
	Disabled   []string `yaml:"disabled"`   // Packages never bumped automatically
	Prerelease []string `yaml:"prerelease"` // Packages that accept prereleases while on a release
	MaxPasses  int      `yaml:"max_passes"` // Convergence pass limit, 0 is unlimited
}

// GitConfig holds the commit author override
type GitConfig struct {
	User  string `yaml:"user"`
	Email string `yaml:"email"`
}

// Default returns the configuration used when no file sets a value
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Path:     ".",
			Manifest: "Cargo.toml",
			Lockfile: "Cargo.lock",
		},
		Index: IndexConfig{
			URL:       DefaultIndexURL,
			CacheSize: 256,
		},
		Resolver: ResolverConfig{
			Command:       []string{"cargo", "update"},
			PackageFlag:   "--package",
			NoRefreshArgs: []string{"--offline"},
		},
		Autoupdate: AutoupdateConfig{
			Disabled:   []string{"clap"},
			Prerelease: []string{},
		},
	}
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ./depsync.yaml (project local)
// 2. ~/.config/depsync/config.yaml (XDG standard)
// 3. ~/.depsync/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"depsync.yaml",
		filepath.Join(xdgConfig, "depsync", "config.yaml"),
		filepath.Join(home, ".depsync", "config.yaml"),
	}, nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// No config exists, return default (XDG) path for creation
	return paths[1], nil
}

// Load reads the configuration. An explicit path must exist; otherwise the
// search order of ConfigPaths applies and a default file is created when
// none exists.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		return LoadFrom(explicit)
	}

	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path. Values missing
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	switch {
	case c.Project.Manifest == "" || c.Project.Lockfile == "":
		return fmt.Errorf("%w: project.manifest and project.lockfile must be set", ErrInvalidConfig)
	case len(c.Resolver.Command) == 0:
		return fmt.Errorf("%w: resolver.command must not be empty", ErrInvalidConfig)
	case c.Index.CacheSize < 0:
		return fmt.Errorf("%w: index.cache_size must not be negative", ErrInvalidConfig)
	case c.Autoupdate.MaxPasses < 0:
		return fmt.Errorf("%w: autoupdate.max_passes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ProjectDir returns the absolute project directory, checking that it
// exists and holds the manifest
func (c *Config) ProjectDir() (string, error) {
	path, err := expandHome(c.Project.Path)
	if err != nil {
		return "", err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrProjectNotFound, path)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, path)
	}

	if _, err := os.Stat(filepath.Join(path, c.Project.Manifest)); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoManifest, filepath.Join(path, c.Project.Manifest))
	}

	return path, nil
}

// IndexPath returns the index checkout path, defaulting to
// $XDG_CACHE_HOME/depsync/crates.io-index
func (c *Config) IndexPath() (string, error) {
	if c.Index.Path != "" {
		return expandHome(c.Index.Path)
	}

	cache := os.Getenv("XDG_CACHE_HOME")
	if cache == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cache = filepath.Join(home, ".cache")
	}
	return filepath.Join(cache, "depsync", "crates.io-index"), nil
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
