package main

import (
	"fmt"
	"os"

	"github.com/obentoo/depsync/internal/autoupdate"
	"github.com/obentoo/depsync/internal/common/config"
	"github.com/obentoo/depsync/internal/common/git"
	"github.com/obentoo/depsync/internal/index"
	"github.com/obentoo/depsync/internal/recorder"
	"github.com/obentoo/depsync/internal/resolver"
	"github.com/obentoo/depsync/internal/selector"
)

// app bundles the components wired from the configuration
type app struct {
	cfg       *config.Config
	project   autoupdate.Project
	indexPath string
	reader    *index.Reader
	cargo     *resolver.Cargo
	recorder  *recorder.Recorder
	selector  *selector.Selector
}

// loadConfig reads the configuration and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if projectPath != "" {
		cfg.Project.Path = projectPath
	}
	if indexPath != "" {
		cfg.Index.Path = indexPath
	}
	return cfg, nil
}

// newApp builds the project, resolver, recorder and policy from cfg.
// The index reader is opened separately so that a refresh can run first.
func newApp(cfg *config.Config) (*app, error) {
	dir, err := cfg.ProjectDir()
	if err != nil {
		return nil, err
	}
	idxPath, err := cfg.IndexPath()
	if err != nil {
		return nil, err
	}

	project := autoupdate.Project{
		Dir:      dir,
		Manifest: cfg.Project.Manifest,
		Lockfile: cfg.Project.Lockfile,
	}

	cargo := resolver.NewCargo(dir,
		resolver.WithCommand(cfg.Resolver.Command...),
		resolver.WithPackageFlag(cfg.Resolver.PackageFlag),
		resolver.WithNoRefreshArgs(cfg.Resolver.NoRefreshArgs...),
		resolver.WithWatch(project.Manifest, project.Lockfile),
	)

	rec := recorder.New(git.NewGitRunner(dir), recorder.WithAuthor(cfg.Git.User, cfg.Git.Email))

	sel := selector.New(
		selector.WithDisabled(cfg.Autoupdate.Disabled...),
		selector.WithPrerelease(cfg.Autoupdate.Prerelease...),
	)

	return &app{
		cfg:       cfg,
		project:   project,
		indexPath: idxPath,
		cargo:     cargo,
		recorder:  rec,
		selector:  sel,
	}, nil
}

// openIndex opens the index checkout with the configured cache size
func (a *app) openIndex() error {
	if _, err := os.Stat(a.indexPath); err != nil {
		return fmt.Errorf("index not available at %s (run 'depsync index refresh'): %w", a.indexPath, err)
	}
	reader, err := index.NewReader(a.indexPath, index.WithCacheSize(a.cfg.Index.CacheSize))
	if err != nil {
		return err
	}
	a.reader = reader
	return nil
}

// updater returns a manifest pass wired to the held list when heldDir is set
func (a *app) updater(heldDir string) (*autoupdate.Updater, error) {
	opts := []autoupdate.UpdaterOption{autoupdate.WithSelector(a.selector)}
	if heldDir != "" {
		held, err := autoupdate.NewHeldList(heldDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, autoupdate.WithHeldList(held))
	}
	return autoupdate.NewUpdater(a.project, a.reader, a.cargo, a.recorder, opts...), nil
}

func (a *app) converger() *autoupdate.Converger {
	return autoupdate.NewConverger(a.project, a.cargo, a.recorder,
		autoupdate.WithMaxPasses(a.cfg.Autoupdate.MaxPasses))
}
