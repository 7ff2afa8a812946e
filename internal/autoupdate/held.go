package autoupdate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/obentoo/depsync/internal/manifest"
)

// ErrHeldCorrupted is returned when the held file cannot be parsed
var ErrHeldCorrupted = errors.New("held file is corrupted")

// HoldReason explains why an available version was not applied
type HoldReason string

// Hold reasons
const (
	// ReasonDisabled means autoupdate is disabled for the package
	ReasonDisabled HoldReason = "disabled"
	// ReasonAnomaly means the pin is ahead of the newest published version
	ReasonAnomaly HoldReason = "anomaly"
)

// HeldUpdate is a version that was found but deliberately not applied
type HeldUpdate struct {
	// Package is the crate name
	Package string `json:"package"`
	// Tier is the dependency table of the pin
	Tier manifest.Tier `json:"tier"`
	// CurrentVersion is the pinned version
	CurrentVersion string `json:"current_version"`
	// AvailableVersion is the newest eligible version in the index
	AvailableVersion string `json:"available_version"`
	// Reason is why the update was held
	Reason HoldReason `json:"reason"`
	// DetectedAt is when this version was first held
	DetectedAt time.Time `json:"detected_at"`
}

func (h HeldUpdate) key() string {
	return string(h.Tier) + "/" + h.Package
}

// heldFile represents the JSON structure stored on disk
type heldFile struct {
	Updates map[string]HeldUpdate `json:"updates"`
}

// HeldList is the persisted report of held updates from the last run
type HeldList struct {
	updates map[string]HeldUpdate
	path    string
	mu      sync.RWMutex
	nowFunc func() time.Time
}

// HeldListOption is a functional option for configuring HeldList
type HeldListOption func(*HeldList)

// WithHeldNowFunc sets a custom time function for testing
func WithHeldNowFunc(fn func() time.Time) HeldListOption {
	return func(h *HeldList) {
		h.nowFunc = fn
	}
}

// DefaultStateDir returns $XDG_STATE_HOME/depsync, falling back to ~/.local/state/depsync
func DefaultStateDir() (string, error) {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "depsync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "depsync"), nil
}

// NewHeldList creates or loads the held list in stateDir.
// A missing or corrupted file yields an empty list that is overwritten on the next save.
func NewHeldList(stateDir string, opts ...HeldListOption) (*HeldList, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	h := &HeldList{
		updates: make(map[string]HeldUpdate),
		path:    filepath.Join(stateDir, "held.json"),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.load(); err != nil && !os.IsNotExist(err) {
		h.updates = make(map[string]HeldUpdate)
	}

	return h, nil
}

// Path returns the held file path
func (h *HeldList) Path() string {
	return h.path
}

func (h *HeldList) load() error {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return err
	}

	var hf heldFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return fmt.Errorf("%w: %v", ErrHeldCorrupted, err)
	}
	if hf.Updates != nil {
		h.updates = hf.Updates
	}
	return nil
}

// Replace swaps the whole list for the updates held by the current run and saves it.
// An entry held again at the same available version keeps its original DetectedAt.
func (h *HeldList) Replace(updates []HeldUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.nowFunc()
	next := make(map[string]HeldUpdate, len(updates))
	for _, u := range updates {
		if prev, ok := h.updates[u.key()]; ok && prev.AvailableVersion == u.AvailableVersion && prev.Reason == u.Reason {
			u.DetectedAt = prev.DetectedAt
		}
		if u.DetectedAt.IsZero() {
			u.DetectedAt = now
		}
		next[u.key()] = u
	}

	h.updates = next
	return h.saveUnsafe()
}

// Get returns the held update for a package in a tier
func (h *HeldList) Get(tier manifest.Tier, pkg string) (*HeldUpdate, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	u, ok := h.updates[HeldUpdate{Tier: tier, Package: pkg}.key()]
	if !ok {
		return nil, false
	}
	return &u, true
}

// List returns the held updates sorted by tier then package
func (h *HeldList) List() []HeldUpdate {
	h.mu.RLock()
	defer h.mu.RUnlock()

	updates := make([]HeldUpdate, 0, len(h.updates))
	for _, u := range h.updates {
		updates = append(updates, u)
	}
	sort.Slice(updates, func(i, j int) bool {
		if updates[i].Tier != updates[j].Tier {
			return updates[i].Tier > updates[j].Tier // runtime before dev
		}
		return updates[i].Package < updates[j].Package
	})
	return updates
}

// Len returns the number of held updates
func (h *HeldList) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.updates)
}

// Clear removes every entry and saves
func (h *HeldList) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.updates = make(map[string]HeldUpdate)
	return h.saveUnsafe()
}

// saveUnsafe persists the list. Caller must hold the write lock.
func (h *HeldList) saveUnsafe() error {
	data, err := json.MarshalIndent(heldFile{Updates: h.updates}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal held list: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write held file: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename held file: %w", err)
	}
	return nil
}
