package git

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrPathOutsideProject = errors.New("path is outside project directory")
	ErrInvalidPath        = errors.New("invalid path")
	ErrGitCommand         = errors.New("git command failed")
)

// GitRunner executes git commands in a specific working directory
type GitRunner struct {
	workDir string
}

// NewGitRunner creates a new GitRunner for the specified working directory
func NewGitRunner(workDir string) *GitRunner {
	return &GitRunner{
		workDir: workDir,
	}
}

// WorkDir returns the working directory of the GitRunner
func (g *GitRunner) WorkDir() string {
	return g.workDir
}

// runCommand executes a git command and returns stdout, stderr, and any error
func (g *GitRunner) runCommand(args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.workDir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		// Wrap the error with stderr for context
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = err.Error()
		}
		err = errors.Join(ErrGitCommand, errors.New("git "+args[0]+": "+detail))
	}

	return stdout, stderr, err
}

// StatusEntry represents a single entry from git status --porcelain
type StatusEntry struct {
	Status   string // A, M, D, R, ??
	Index    byte   // X column: state in the index
	Worktree byte   // Y column: state in the working tree
	FilePath string // relative to the repository root
}

// Staged reports whether the entry has changes recorded in the index
func (e StatusEntry) Staged() bool {
	return e.Index != ' ' && e.Index != '?' && e.Index != '!' && e.Index != 0
}

// Status returns the current git status as a list of StatusEntry
func (g *GitRunner) Status() ([]StatusEntry, error) {
	stdout, _, err := g.runCommand("status", "--porcelain")
	if err != nil {
		return nil, err
	}

	return ParseStatusOutput(stdout), nil
}

// ParseStatusOutput parses git status --porcelain output into StatusEntry slice
func ParseStatusOutput(output string) []StatusEntry {
	var entries []StatusEntry

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}

		// Git status --porcelain format: XY filename
		// X = index status, Y = worktree status
		status := strings.TrimSpace(line[:2])
		filePath := line[3:]

		// Handle renamed files: R  old -> new
		if strings.HasPrefix(status, "R") {
			parts := strings.Split(filePath, " -> ")
			if len(parts) == 2 {
				filePath = parts[1]
			}
		}

		entries = append(entries, StatusEntry{
			Status:   status,
			Index:    line[0],
			Worktree: line[1],
			FilePath: filePath,
		})
	}

	return entries
}

// Prefix returns the path of the working directory relative to the
// repository root, with a trailing slash, or "" at the root.
func (g *GitRunner) Prefix() (string, error) {
	stdout, _, err := g.runCommand("rev-parse", "--show-prefix")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// Add stages files for commit with path validation
func (g *GitRunner) Add(paths ...string) error {
	if len(paths) == 0 {
		// Default to adding all changes
		_, _, err := g.runCommand("add", ".")
		return err
	}

	for _, path := range paths {
		if err := g.validateAndAddPath(path); err != nil {
			return err
		}
	}

	return nil
}

// validateAndAddPath validates a single path and adds it to staging
func (g *GitRunner) validateAndAddPath(path string) error {
	// Resolve the path relative to workDir
	var absPath string
	if filepath.IsAbs(path) {
		absPath = path
	} else {
		absPath = filepath.Join(g.workDir, path)
	}

	// Clean the path to resolve any .. or . components
	absPath = filepath.Clean(absPath)
	workDirAbs := filepath.Clean(g.workDir)

	relPath, err := filepath.Rel(workDirAbs, absPath)
	if err != nil {
		return errors.Join(ErrInvalidPath, err)
	}

	// If the relative path starts with "..", it's outside the project
	if strings.HasPrefix(relPath, "..") {
		return ErrPathOutsideProject
	}

	if !fileExists(absPath) {
		return ErrFileNotFound
	}

	_, _, err = g.runCommand("add", "--", path)
	return err
}

// fileExists checks if a file or directory exists using os.Stat
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Commit creates a git commit with the specified message and author.
// When paths are given only those paths are committed, whatever else is staged.
func (g *GitRunner) Commit(message, user, email string, paths ...string) error {
	args := []string{"commit", "-m", message}

	// Set author if provided
	if user != "" && email != "" {
		author := user + " <" + email + ">"
		args = append(args, "--author", author)
	}

	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}

	_, _, err := g.runCommand(args...)
	return err
}

// Clone clones url into dir (relative to the working directory).
// A depth of zero clones the full history.
func (g *GitRunner) Clone(url, dir string, depth int) error {
	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth="+strconv.Itoa(depth))
	}
	args = append(args, url, dir)

	_, _, err := g.runCommand(args...)
	return err
}

// Pull fetches and merges the default branch of remote
func (g *GitRunner) Pull(remote string, depth int) error {
	args := []string{"pull"}
	if depth > 0 {
		args = append(args, "--depth="+strconv.Itoa(depth))
	}
	args = append(args, remote)

	_, _, err := g.runCommand(args...)
	return err
}
