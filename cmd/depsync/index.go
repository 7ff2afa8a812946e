package main

import (
	"os"

	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/obentoo/depsync/internal/index"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local package index",
	Long:  `Commands for the local checkout of the package index.`,
}

var indexRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Clone or pull the package index",
	Long: `Clone a shallow copy of the package index when none exists yet, or pull
the existing checkout. The location comes from index.path or --index.`,
	Run: runIndexRefresh,
}

func init() {
	indexCmd.AddCommand(indexRefreshCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRefresh(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	path, err := cfg.IndexPath()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	logger.Debug("Refreshing index at %s", path)
	result, err := index.Refresh(path, cfg.Index.URL)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	output.PrintSuccess("%s", result.Message)
}
