// Package universe persists the discovered ticker universe as a JSON array.
package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath is where the universe is written, relative to the working directory
const DefaultPath = "data/nasdaq_universe.json"

// Store reads and writes the universe file
type Store struct {
	path string
}

// NewStore creates a store for path. An empty path uses DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the file location
func (s *Store) Path() string {
	return s.path
}

// Save replaces the file with the given symbols. The parent directory is
// created when missing. The write goes through a temp file and a rename so a
// reader never sees a half-written array.
func (s *Store) Save(symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}

	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".universe-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write universe: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	return nil
}

// Load reads the universe back. A missing file returns os.ErrNotExist wrapped.
func (s *Store) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe: %w", err)
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("failed to parse universe: %w", err)
	}
	return symbols, nil
}
