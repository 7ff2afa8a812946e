package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Outcome colors
	Upgrade  = color.New(color.FgGreen)
	Hold     = color.New(color.Faint)
	Disabled = color.New(color.FgYellow)
	Anomaly  = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// OutcomeColor returns the color for a selection outcome
func OutcomeColor(outcome string) *color.Color {
	switch outcome {
	case "upgrade":
		return Upgrade
	case "hold":
		return Hold
	case "disabled":
		return Disabled
	case "anomaly":
		return Anomaly
	default:
		return color.New(color.Reset)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// FormatOutcome formats an outcome as a fixed-width colored tag
func FormatOutcome(outcome string) string {
	return OutcomeColor(outcome).Sprintf("[%-8s]", outcome)
}

// FormatPackage formats a crate name, with its version when given
func FormatPackage(name, version string) string {
	if version != "" {
		return Package.Sprintf("%s@%s", name, version)
	}
	return Package.Sprint(name)
}

// FormatTransition formats "from -> to" for a version change
func FormatTransition(from, to string) string {
	return fmt.Sprintf("%s -> %s", Dim.Sprint(from), Success.Sprint(to))
}

// Box prints a boxed message
func Box(title, content string) {
	fmt.Println()
	Header.Println("┌─ " + title + " ─")
	fmt.Println("│")
	fmt.Println("│  " + content)
	fmt.Println("│")
	Header.Println("└────────────────")
	fmt.Println()
}
