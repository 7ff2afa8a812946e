package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/obentoo/depsync/internal/autoupdate"
	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/spf13/cobra"
)

// heldClear empties the held list
var heldClear bool

var heldCmd = &cobra.Command{
	Use:   "held",
	Short: "List updates found but not applied by the last run",
	Long: `List the updates the last 'depsync update' found but did not apply,
either because autoupdate is disabled for the package or because the pin is
ahead of the index.

Examples:
  depsync held            List held updates
  depsync held --clear    Forget all held updates`,
	Run: runHeld,
}

func init() {
	heldCmd.Flags().BoolVar(&heldClear, "clear", false, "Clear the held list")

	rootCmd.AddCommand(heldCmd)
}

func runHeld(cmd *cobra.Command, args []string) {
	stateDir, err := autoupdate.DefaultStateDir()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	held, err := autoupdate.NewHeldList(stateDir)
	if err != nil {
		logger.Error("failed to load held list: %v", err)
		os.Exit(1)
	}

	if heldClear {
		if err := held.Clear(); err != nil {
			logger.Error("failed to clear held list: %v", err)
			os.Exit(1)
		}
		output.PrintSuccess("Held list cleared")
		return
	}

	displayHeldUpdates(held.List())
}

// displayHeldUpdates formats and displays held updates
func displayHeldUpdates(updates []autoupdate.HeldUpdate) {
	if len(updates) == 0 {
		logger.Info("No held updates")
		return
	}

	fmt.Println()
	output.Header.Println("Held Updates")
	fmt.Println()

	for _, u := range updates {
		output.Package.Printf("  %s", u.Package)
		fmt.Printf(" (%s)\n", u.Tier)
		fmt.Printf("    Version:  %s\n", output.FormatTransition(u.CurrentVersion, u.AvailableVersion))
		fmt.Printf("    Reason:   %s\n", output.Sprint(reasonColor(u.Reason), u.Reason))
		fmt.Printf("    Detected: %s\n", u.DetectedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	output.Info.Printf("Total: %d held update(s)\n", len(updates))
}

// reasonColor returns the color for a hold reason
func reasonColor(reason autoupdate.HoldReason) *color.Color {
	switch reason {
	case autoupdate.ReasonDisabled:
		return output.Disabled
	case autoupdate.ReasonAnomaly:
		return output.Anomaly
	default:
		return output.Dim
	}
}
