package main

import (
	"fmt"
	"os"

	"github.com/obentoo/depsync/internal/autoupdate"
	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/obentoo/depsync/internal/index"
	"github.com/obentoo/depsync/internal/selector"
	"github.com/spf13/cobra"
)

var (
	// updateRefresh refreshes the index before deciding anything
	updateRefresh bool
	// updateSkipConverge stops after the manifest pass
	updateSkipConverge bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Bump pinned dependencies and converge the lockfile",
	Long: `Move every pinned dependency to the newest eligible version, one commit
per bump, then re-resolve lockfile entries until a full pass changes nothing.

Examples:
  depsync update                    Manifest pass, then convergence loop
  depsync update --refresh          Pull the package index first
  depsync update --skip-converge    Only bump manifest pins`,
	Run: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateRefresh, "refresh", false, "Refresh the package index before updating")
	updateCmd.Flags().BoolVar(&updateSkipConverge, "skip-converge", false, "Skip the lockfile convergence loop")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	a, err := newApp(cfg)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if updateRefresh {
		result, err := index.Refresh(a.indexPath, cfg.Index.URL)
		if err != nil {
			logger.Error("refreshing index: %v", err)
			os.Exit(1)
		}
		logger.Info("%s", result.Message)
	}

	if err := a.openIndex(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	stateDir, err := autoupdate.DefaultStateDir()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	updater, err := a.updater(stateDir)
	if err != nil {
		logger.Error("loading held list: %v", err)
		os.Exit(1)
	}

	ctx := cmd.Context()
	result, err := updater.Run(ctx)
	if result != nil {
		displayUpdateResult(result)
	}
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	lockCommits := 0
	if !updateSkipConverge {
		converged, err := a.converger().Run(ctx)
		if converged != nil {
			displayConvergeResult(converged)
		}
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		lockCommits = converged.Commits
	}

	if !quiet {
		output.Box("Update complete", updateSummary(result.Commits, lockCommits, len(result.Held)))
	}
}

// updateSummary is the one-line summary shown after a full update
func updateSummary(manifestCommits, lockCommits, held int) string {
	return fmt.Sprintf("%d manifest commit(s), %d lockfile commit(s), %d held", manifestCommits, lockCommits, held)
}

// displayUpdateResult prints the bumps and holds of a manifest pass
func displayUpdateResult(result *autoupdate.UpdateResult) {
	for _, r := range result.Reports {
		if r.Outcome == selector.Upgrade {
			output.PrintSuccess("%s %s", output.FormatPackage(r.Package, ""), output.FormatTransition(r.Current.String(), r.Selected.String()))
		}
	}
	if len(result.Held) > 0 {
		output.PrintWarning("%d update(s) held, see 'depsync held'", len(result.Held))
	}
	output.PrintInfo("Manifest pass: %d commit(s)", result.Commits)
}
