// Package autoupdate keeps a Cargo project's pinned dependencies in step
// with a local copy of the package index.
//
// The package implements:
//   - The manifest pass (Updater): each pinned dependency, runtime tier
//     first, is moved to the newest eligible version and committed on its own
//   - The convergence loop (Converger): lockfile entries are re-resolved one
//     at a time until a full pass changes nothing
//   - The held list: versions that were found but deliberately not applied,
//     persisted in $XDG_STATE_HOME/depsync/held.json
//
// Usage:
//
//	project := autoupdate.NewProject(dir)
//	updater := autoupdate.NewUpdater(project, reader, cargo, rec)
//	if _, err := updater.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	_, err := autoupdate.NewConverger(project, cargo, rec).Run(ctx)
package autoupdate
