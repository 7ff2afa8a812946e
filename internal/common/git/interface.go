package git

// GitExecutor defines the interface for git operations.
// This interface allows for mocking git operations in tests.
type GitExecutor interface {
	// Status returns the current git status as a list of StatusEntry
	Status() ([]StatusEntry, error)

	// Prefix returns the working directory relative to the repository root
	Prefix() (string, error)

	// Add stages files for commit
	Add(paths ...string) error

	// Commit creates a git commit limited to paths (all staged changes when empty)
	Commit(message, user, email string, paths ...string) error

	// Clone clones a repository into dir
	Clone(url, dir string, depth int) error

	// Pull fetches and merges from a remote
	Pull(remote string, depth int) error

	// WorkDir returns the working directory of the git repository
	WorkDir() string
}

var _ GitExecutor = (*GitRunner)(nil)
