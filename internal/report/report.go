// Package report renders blocking-session history for export and display.
package report

import (
	"fmt"
	"time"

	"github.com/fakeyudi/touchgrass/internal/session"
)

// Report is the complete, renderable view of a session history.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Author      string            `json:"author,omitempty"`
	Stats       session.Stats     `json:"stats"`
	Active      *session.Session  `json:"active,omitempty"`
	Sessions    []session.Session `json:"sessions"` // archived, newest first
}

// Build assembles a Report. Stats cover both archived sessions and the
// active one.
func Build(archived []session.Session, active *session.Session, author string, now time.Time) *Report {
	sessions := make([]session.Session, 0, len(archived))
	for i := len(archived) - 1; i >= 0; i-- {
		sessions = append(sessions, archived[i])
	}

	all := sessions
	if active != nil {
		all = append(append([]session.Session{}, sessions...), *active)
	}

	return &Report{
		GeneratedAt: now,
		Author:      author,
		Stats:       session.Summarize(all, now),
		Active:      active,
		Sessions:    sessions,
	}
}

// FormatDuration renders d compactly, e.g. "2h15m" or "45s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
