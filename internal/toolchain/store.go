package toolchain

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chaosctl/chaos/internal/log"
)

// storedToolchain is the on-disk form of one registry entry.
type storedToolchain struct {
	ID             string         `toml:"id"`
	Architecture   Architecture   `toml:"architecture"`
	Compiler       Compiler       `toml:"compiler"`
	BuildType      BuildType      `toml:"build_type"`
	Distro         Distro         `toml:"distro"`
	PackageManager PackageManager `toml:"package_manager"`
}

// storedState is the whole toolchains.toml document.
type storedState struct {
	Selected   string            `toml:"selected,omitempty"`
	Toolchains []storedToolchain `toml:"toolchains"`
}

// Store persists a Registry and the selected toolchain to a TOML file.
// Reads take a shared advisory lock, writes an exclusive one, and writes
// are atomic (temp file + rename).
type Store struct {
	path   string
	logger log.Logger
}

// NewStore returns a store backed by the file at path.
func NewStore(path string, logger log.Logger) *Store {
	return &Store{path: path, logger: log.OrDefault(logger)}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// Load reads the registry. A missing file yields an empty registry.
// Entries that fail validation are skipped with a warning, and a selection
// pointing at a skipped entry is dropped.
func (s *Store) Load() (*Registry, ID, error) {
	reg := NewRegistry()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return reg, "", nil
	}

	lock := newFileLock(s.lockPath())
	if err := lock.lockShared(); err != nil {
		return nil, "", fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer func() { _ = lock.unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read toolchain registry: %w", err)
	}

	var state storedState
	if _, err := toml.Decode(string(data), &state); err != nil {
		return nil, "", fmt.Errorf("failed to parse toolchain registry %s: %w", s.path, err)
	}

	for _, t := range state.Toolchains {
		p := Profile{
			Architecture:   t.Architecture,
			Compiler:       t.Compiler,
			BuildType:      t.BuildType,
			Distro:         t.Distro,
			PackageManager: t.PackageManager,
		}
		if t.ID == "" {
			s.logger.Warn("skipping toolchain without id", "profile", p.String())
			continue
		}
		if err := p.Validate(); err != nil {
			s.logger.Warn("skipping invalid toolchain", "id", t.ID, "error", err)
			continue
		}
		if !reg.restore(ID(t.ID), p) {
			s.logger.Warn("skipping duplicate toolchain", "id", t.ID)
		}
	}

	selected := ID(state.Selected)
	if selected != "" {
		if _, ok := reg.IndexOf(selected); !ok {
			s.logger.Warn("selected toolchain is no longer registered", "id", selected)
			selected = ""
		}
	}

	s.logger.Debug("loaded toolchain registry", "path", s.path, "count", reg.Len())
	return reg, selected, nil
}

// Save writes the registry in its current order along with the selection.
func (s *Store) Save(reg *Registry, selected ID) error {
	state := storedState{Selected: string(selected), Toolchains: []storedToolchain{}}
	for _, e := range reg.List() {
		state.Toolchains = append(state.Toolchains, storedToolchain{
			ID:             string(e.ID),
			Architecture:   e.Profile.Architecture,
			Compiler:       e.Profile.Compiler,
			BuildType:      e.Profile.BuildType,
			Distro:         e.Profile.Distro,
			PackageManager: e.Profile.PackageManager,
		})
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("failed to encode toolchain registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	lock := newFileLock(s.lockPath())
	if err := lock.lockExclusive(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = lock.unlock() }()

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temp registry file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry file: %w", err)
	}

	s.logger.Debug("saved toolchain registry", "path", s.path, "count", len(state.Toolchains))
	return nil
}
