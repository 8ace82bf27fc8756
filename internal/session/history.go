package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryStore keeps finished sessions, oldest first.
type HistoryStore interface {
	Append(s *Session) error
	List() ([]Session, error)
}

// Stats aggregates a session history.
type Stats struct {
	Sessions      int           `json:"sessions"`
	Verifications int           `json:"verifications"`
	UnlockTime    time.Duration `json:"unlock_time"`
	BlockedTime   time.Duration `json:"blocked_time"`
}

// jsonlHistory appends one JSON document per line to history.jsonl.
type jsonlHistory struct {
	mu   sync.Mutex
	path string
}

// NewHistoryStore returns a HistoryStore in the XDG data directory.
func NewHistoryStore() (HistoryStore, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	return NewHistoryStoreIn(dir)
}

// NewHistoryStoreIn returns a HistoryStore writing history.jsonl under dir.
func NewHistoryStoreIn(dir string) (HistoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &jsonlHistory{path: filepath.Join(dir, "history.jsonl")}, nil
}

func (h *jsonlHistory) Append(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return f.Close()
}

// List reads every archived session. A missing file is an empty history.
func (h *jsonlHistory) List() ([]Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer f.Close()

	var out []Session
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var s Session
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Summarize totals a list of sessions. Sessions still open are measured up
// to now.
func Summarize(sessions []Session, now time.Time) Stats {
	var st Stats
	for i := range sessions {
		s := &sessions[i]
		st.Sessions++
		st.Verifications += s.VerificationCount
		st.UnlockTime += s.UnlockDuration()
		st.BlockedTime += s.Duration(now)
	}
	return st
}
