package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/obentoo/depsync/internal/common/version"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	quiet       bool
	noColor     bool
	logFile     bool
	configPath  string
	projectPath string
	indexPath   string
)

var rootCmd = &cobra.Command{
	Use:   "depsync",
	Short: "Keep Cargo dependencies up to date, one commit per change",
	Long: `depsync bumps the pinned dependencies of a Cargo project to the newest
versions published in a local copy of the package index, then re-resolves
the lockfile until it stops changing. Every change becomes its own commit.`,
	Version: version.Short(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
		logger.SetQuiet(quiet)
		if noColor {
			output.NoColor()
		}
		if logFile {
			if err := logger.Default().EnableFileLogging(); err != nil {
				logger.Warn("file logging disabled: %v", err)
			}
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Default().Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also write the log to the state directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: search ./depsync.yaml, then the XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "Cargo project directory (overrides project.path)")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "Package index checkout (overrides index.path)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}
