package main

import (
	"os"

	"github.com/obentoo/depsync/internal/autoupdate"
	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/spf13/cobra"
)

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Re-resolve the lockfile until it stops changing",
	Long: `Run the resolver for one lockfile entry at a time, committing each change,
until a full pass over the lockfile changes nothing. The manifest is never
modified.`,
	Run: runConverge,
}

func init() {
	rootCmd.AddCommand(convergeCmd)
}

func runConverge(cmd *cobra.Command, args []string) {
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

	result, err := a.converger().Run(cmd.Context())
	if result != nil {
		displayConvergeResult(result)
	}
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// displayConvergeResult prints the pass and commit counts of a convergence run
func displayConvergeResult(result *autoupdate.ConvergeResult) {
	output.PrintInfo("Convergence: %d pass(es), %d commit(s)", result.Passes, result.Commits)
}
