package git

// MockGitRunner implements GitExecutor for testing.
// Each method can be configured with a custom function to control behavior.
type MockGitRunner struct {
	StatusFunc func() ([]StatusEntry, error)
	PrefixFunc func() (string, error)
	AddFunc    func(paths ...string) error
	CommitFunc func(message, user, email string, paths ...string) error
	CloneFunc  func(url, dir string, depth int) error
	PullFunc   func(remote string, depth int) error
	workDir    string
}

// NewMockGitRunner creates a new MockGitRunner with the specified working directory
func NewMockGitRunner(workDir string) *MockGitRunner {
	return &MockGitRunner{
		workDir: workDir,
	}
}

// Status returns the current git status as a list of StatusEntry
func (m *MockGitRunner) Status() ([]StatusEntry, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return nil, nil
}

// Prefix returns the working directory relative to the repository root
func (m *MockGitRunner) Prefix() (string, error) {
	if m.PrefixFunc != nil {
		return m.PrefixFunc()
	}
	return "", nil
}

// Add stages files for commit
func (m *MockGitRunner) Add(paths ...string) error {
	if m.AddFunc != nil {
		return m.AddFunc(paths...)
	}
	return nil
}

// Commit creates a git commit with the specified message and author
func (m *MockGitRunner) Commit(message, user, email string, paths ...string) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(message, user, email, paths...)
	}
	return nil
}

// Clone clones a repository into dir
func (m *MockGitRunner) Clone(url, dir string, depth int) error {
	if m.CloneFunc != nil {
		return m.CloneFunc(url, dir, depth)
	}
	return nil
}

// Pull fetches and merges from a remote
func (m *MockGitRunner) Pull(remote string, depth int) error {
	if m.PullFunc != nil {
		return m.PullFunc(remote, depth)
	}
	return nil
}

// WorkDir returns the working directory of the git repository
func (m *MockGitRunner) WorkDir() string {
	return m.workDir
}

// Ensure MockGitRunner implements GitExecutor interface
var _ GitExecutor = (*MockGitRunner)(nil)
