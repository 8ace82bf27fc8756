package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the selection as selection.json in a data directory.
type Store struct {
	path string
}

// NewStore returns a Store rooted at dir, creating dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, "selection.json")}, nil
}

// Load returns the saved selection, or an empty set when none exists.
func (st *Store) Load() (Set, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{IDs: []string{}}, nil
		}
		return Set{}, fmt.Errorf("failed to read selection: %w", err)
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("failed to parse selection: %w", err)
	}
	return New(s.IDs...), nil
}

// Save writes s atomically.
func (st *Store) Save(s Set) (err error) {
	data, err := json.MarshalIndent(New(s.IDs...), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(st.path), "selection-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	if err = os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	return nil
}
