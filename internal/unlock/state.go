package unlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fakeyudi/touchgrass/internal/session"
)

// Phase is the blocking phase of the lifecycle.
type Phase string

const (
	Blocked             Phase = "blocked"
	TemporarilyUnlocked Phase = "temporarily_unlocked"
)

// State is what survives between processes. UnlockExpiry is set exactly
// when Phase is TemporarilyUnlocked.
type State struct {
	Phase         Phase      `json:"phase"`
	UnlockExpiry  *time.Time `json:"unlock_expiry,omitempty"`
	Selection     []string   `json:"selection"`
	Enabled       bool       `json:"enabled"`
	PendingRelock bool       `json:"pending_relock,omitempty"`
	// PendingClear is set when blocking stopped but the gateway refused to
	// lift restrictions.
	PendingClear bool `json:"pending_clear,omitempty"`
}

// ErrCorruptState is returned by StateStore.Load when the saved state cannot
// be parsed.
var ErrCorruptState = errors.New("lifecycle state is corrupt")

func initialState() State {
	return State{Phase: Blocked, Selection: []string{}}
}

// IsBlocking reports whether restrictions are meant to be in force.
func (s State) IsBlocking() bool {
	return s.Enabled && s.Phase == Blocked
}

func (s State) clone() State {
	c := s
	c.Selection = slices.Clone(s.Selection)
	if s.UnlockExpiry != nil {
		e := *s.UnlockExpiry
		c.UnlockExpiry = &e
	}
	return c
}

// Status is a point-in-time view for display.
type Status struct {
	State
	Remaining time.Duration    `json:"remaining"`
	Session   *session.Session `json:"session,omitempty"`
	Gateway   string           `json:"gateway"`
}

// StateStore persists State.
type StateStore interface {
	Save(s State) error
	// Load returns the initial blocked, disabled state when nothing is saved.
	Load() (State, error)
}

type fileStateStore struct {
	path string
}

// NewStateStoreIn returns a StateStore writing state.json under dir.
func NewStateStoreIn(dir string) (StateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &fileStateStore{path: filepath.Join(dir, "state.json")}, nil
}

func (f *fileStateStore) Save(s State) (err error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist lifecycle state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist lifecycle state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist lifecycle state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist lifecycle state: %w", err)
	}
	if err = os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to persist lifecycle state: %w", err)
	}
	return nil
}

func (f *fileStateStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return initialState(), nil
		}
		return State{}, fmt.Errorf("failed to read lifecycle state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return sanitize(s), nil
}

// sanitize restores the phase/expiry invariant on loaded data.
func sanitize(s State) State {
	if s.Selection == nil {
		s.Selection = []string{}
	}
	switch {
	case s.Phase == TemporarilyUnlocked && s.UnlockExpiry == nil:
		s.Phase = Blocked
	case s.Phase != TemporarilyUnlocked:
		s.Phase = Blocked
		s.UnlockExpiry = nil
	}
	return s
}

// In-memory stores used when the caller does not supply persistent ones.

type memStateStore struct {
	mu sync.Mutex
	s  State
}

func (m *memStateStore) Save(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s.clone()
	return nil
}

func (m *memStateStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Phase == "" {
		return initialState(), nil
	}
	return m.s.clone(), nil
}

type memSessionStore struct {
	mu sync.Mutex
	s  *session.Session
}

func (m *memSessionStore) Save(s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.s = &c
	return nil
}

func (m *memSessionStore) Load() (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, session.ErrNoSession
	}
	c := *m.s
	return &c, nil
}

func (m *memSessionStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

type discardHistory struct{}

func (discardHistory) Append(*session.Session) error   { return nil }
func (discardHistory) List() ([]session.Session, error) { return nil, nil }
