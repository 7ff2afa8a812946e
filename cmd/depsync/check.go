package main

import (
	"fmt"
	"os"

	"github.com/obentoo/depsync/internal/autoupdate"
	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/common/output"
	"github.com/obentoo/depsync/internal/selector"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show what update would do without changing anything",
	Long: `Apply the version policy to every pinned dependency and print the
decision. Nothing is written and no commit is made.

Outcomes:
  upgrade    A newer eligible version exists
  hold       The pin is already the newest eligible version
  disabled   Autoupdate is switched off for the package
  anomaly    The pin is ahead of every version in the index`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
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
	if err := a.openIndex(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	updater, err := a.updater("")
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	reports, err := updater.Check(cmd.Context())
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	displayReports(reports)
}

// displayReports prints one line per decision followed by a summary
func displayReports(reports []autoupdate.Report) {
	if len(reports) == 0 {
		logger.Info("No pinned dependencies")
		return
	}

	fmt.Println()
	output.Header.Println("Dependency Check Results")
	fmt.Println()

	counts := make(map[selector.Outcome]int)
	for _, r := range reports {
		counts[r.Outcome]++
		fmt.Println(formatReport(r))
	}

	fmt.Println()
	if counts[selector.Upgrade] > 0 {
		output.Info.Printf("%d update(s) available\n", counts[selector.Upgrade])
		output.Info.Println("Use 'depsync update' to apply them")
	} else {
		output.Success.Println("All pinned dependencies are up to date")
	}
	if counts[selector.Anomaly] > 0 {
		output.Warning.Printf("%d pin(s) are ahead of the index\n", counts[selector.Anomaly])
	}
}

// formatReport renders a decision as "  [outcome ] tier name version"
func formatReport(r autoupdate.Report) string {
	versions := r.Current.String()
	switch {
	case r.Outcome == selector.Upgrade:
		versions = output.FormatTransition(r.Current.String(), r.Selected.String())
	case r.Outcome == selector.Disabled && r.HasNewer():
		versions = fmt.Sprintf("%s (%s available)", r.Current, r.Selected)
	case r.Outcome == selector.Anomaly:
		versions = fmt.Sprintf("%s (index has %s)", r.Current, r.Selected)
	}
	return fmt.Sprintf("  %s %-7s %s %s", output.FormatOutcome(string(r.Outcome)), r.Tier, output.FormatPackage(r.Package, ""), versions)
}
