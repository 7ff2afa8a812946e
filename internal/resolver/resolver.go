// Package resolver runs the external dependency resolver (cargo) against
// the project and reports what it changed.
package resolver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/obentoo/depsync/internal/common/logger"
	"github.com/obentoo/depsync/internal/lockfile"
)

// ErrResolverFailed is wrapped by every *Failure
var ErrResolverFailed = errors.New("resolver failed")

// Default invocation
var (
	DefaultCommand       = []string{"cargo", "update"}
	DefaultPackageFlag   = "--package"
	DefaultNoRefreshArgs = []string{"--offline"}
)

// Scope selects what the resolver re-resolves
type Scope struct {
	// Name is the package to update; empty for the whole graph
	Name string
	// Version disambiguates a package present in several versions
	Version string
}

// Package returns a scope limited to one package. version may be empty.
func Package(name, version string) Scope {
	return Scope{Name: name, Version: version}
}

// Full returns a scope covering the whole dependency graph
func Full() Scope {
	return Scope{}
}

// IsFull reports whether the scope covers the whole graph
func (s Scope) IsFull() bool {
	return s.Name == ""
}

// Spec returns the package argument, name or name@version
func (s Scope) Spec() string {
	if s.Version != "" {
		return s.Name + "@" + s.Version
	}
	return s.Name
}

func (s Scope) String() string {
	if s.IsFull() {
		return "<all>"
	}
	return s.Spec()
}

// Outcome describes the effect of one resolver invocation
type Outcome struct {
	// Changed is true when any watched file changed
	Changed bool
	// Touched lists the watched files that changed
	Touched []string
	// Summary holds the resolver's own change lines, e.g. "Updating foo v1.0.0 -> v1.0.1"
	Summary []string
	// Stderr is the raw diagnostic output
	Stderr string
}

// TouchedFile reports whether path is among the touched files
func (o *Outcome) TouchedFile(path string) bool {
	for _, p := range o.Touched {
		if p == path {
			return true
		}
	}
	return false
}

// Failure is returned when the resolver exits unsuccessfully
type Failure struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (exit %d)", strings.Join(f.Args, " "), f.ExitCode)
	if out := strings.TrimSpace(f.Stdout); out != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(out)
	}
	if errOut := strings.TrimSpace(f.Stderr); errOut != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(errOut)
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return ErrResolverFailed
}

// Invoker applies the resolver to a scope
type Invoker interface {
	Apply(ctx context.Context, scope Scope) (*Outcome, error)
}

// Cargo invokes cargo as a subprocess in the project directory
type Cargo struct {
	dir           string
	command       []string
	packageFlag   string
	noRefreshArgs []string
	watch         []string
}

// Option is a functional option for configuring Cargo
type Option func(*Cargo)

// WithCommand overrides the base command, e.g. ["cargo", "update"]
func WithCommand(args ...string) Option {
	return func(c *Cargo) {
		if len(args) > 0 {
			c.command = args
		}
	}
}

// WithPackageFlag overrides the flag that introduces a package spec
func WithPackageFlag(flag string) Option {
	return func(c *Cargo) {
		if flag != "" {
			c.packageFlag = flag
		}
	}
}

// WithNoRefreshArgs overrides the arguments that keep the resolver from
// refreshing its own copy of the index
func WithNoRefreshArgs(args ...string) Option {
	return func(c *Cargo) {
		c.noRefreshArgs = args
	}
}

// WithWatch sets the files whose changes are reported, relative to the
// project directory or absolute
func WithWatch(paths ...string) Option {
	return func(c *Cargo) {
		c.watch = paths
	}
}

// NewCargo creates a Cargo invoker for the project at dir. By default it
// watches Cargo.toml and Cargo.lock.
func NewCargo(dir string, opts ...Option) *Cargo {
	c := &Cargo{
		dir:           dir,
		command:       DefaultCommand,
		packageFlag:   DefaultPackageFlag,
		noRefreshArgs: DefaultNoRefreshArgs,
		watch:         []string{"Cargo.toml", "Cargo.lock"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Args returns the full command line for scope
func (c *Cargo) Args(scope Scope) []string {
	args := append([]string(nil), c.command...)
	args = append(args, c.noRefreshArgs...)
	if !scope.IsFull() {
		args = append(args, c.packageFlag, scope.Spec())
	}
	return args
}

// Apply runs the resolver synchronously and reports which watched files it changed
func (c *Cargo) Apply(ctx context.Context, scope Scope) (*Outcome, error) {
	before, err := c.fingerprints()
	if err != nil {
		return nil, err
	}

	args := c.Args(scope)
	logger.Debug("Running %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		failure := &Failure{
			Args:     args,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			failure.ExitCode = exitErr.ExitCode()
		} else if failure.Stderr == "" {
			failure.Stderr = err.Error()
		}
		return nil, failure
	}

	after, err := c.fingerprints()
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Summary: SummaryLines(stderr.String()),
		Stderr:  stderr.String(),
	}
	for _, path := range c.watch {
		if before[path] != after[path] {
			outcome.Touched = append(outcome.Touched, path)
		}
	}
	outcome.Changed = len(outcome.Touched) > 0

	return outcome, nil
}

func (c *Cargo) fingerprints() (map[string]uint64, error) {
	sums := make(map[string]uint64, len(c.watch))
	for _, path := range c.watch {
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(c.dir, path)
		}
		sum, err := lockfile.Fingerprint(full)
		if err != nil {
			return nil, err
		}
		sums[path] = sum
	}
	return sums, nil
}

var summaryVerbs = map[string]bool{
	"Updating":    true,
	"Upgrading":   true,
	"Downgrading": true,
	"Adding":      true,
	"Removing":    true,
}

// SummaryLines extracts the package change lines from cargo's stderr.
// Index refresh notices ("Updating crates.io index") are not changes.
func SummaryLines(stderr string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		verb, _, _ := strings.Cut(line, " ")
		if !summaryVerbs[verb] || strings.HasSuffix(line, " index") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
