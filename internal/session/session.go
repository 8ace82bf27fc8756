package session

import "time"

// Session is one continuous span during which blocking is active, bounded by
// an explicit start and stop.
type Session struct {
	ID                string     `json:"id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	TargetIdentifiers []string   `json:"target_identifiers"`
	Category          string     `json:"category,omitempty"` // nature category used to unlock, if any
	VerificationCount int        `json:"verification_count"`
	// TotalUnlockTime is the sum of granted unlock windows, in seconds.
	TotalUnlockTime float64 `json:"total_unlock_time"`
}

// New opens a session starting at now.
func New(id string, now time.Time, targets []string) *Session {
	return &Session{
		ID:                id,
		StartTime:         now,
		TargetIdentifiers: append([]string{}, targets...),
	}
}

// IsActive reports whether the session has not been ended.
func (s *Session) IsActive() bool { return s.EndTime == nil }

// RecordVerification counts a successful verification that granted d.
func (s *Session) RecordVerification(d time.Duration, category string) {
	s.VerificationCount++
	s.TotalUnlockTime += d.Seconds()
	if category != "" {
		s.Category = category
	}
}

// End closes the session at now. Ending twice keeps the first time.
func (s *Session) End(now time.Time) {
	if s.EndTime != nil {
		return
	}
	s.EndTime = &now
}

// Duration is the elapsed time of the session, measured to now while it is
// still active.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// UnlockDuration returns TotalUnlockTime as a time.Duration.
func (s *Session) UnlockDuration() time.Duration {
	return time.Duration(s.TotalUnlockTime * float64(time.Second))
}
