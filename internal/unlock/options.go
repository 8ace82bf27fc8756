package unlock

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/touchgrass/internal/session"
)

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Lifecycle) { l.clock = c }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Lifecycle) { l.log = log.With().Str("component", "unlock").Logger() }
}

// WithStateStore persists lifecycle state so another process can resume it.
func WithStateStore(s StateStore) Option {
	return func(l *Lifecycle) { l.states = s }
}

// WithSessionStore persists the open blocking session.
func WithSessionStore(s session.SessionStore) Option {
	return func(l *Lifecycle) { l.sessions = s }
}

// WithHistoryStore archives sessions when they end.
func WithHistoryStore(h session.HistoryStore) Option {
	return func(l *Lifecycle) { l.history = h }
}

// WithPolicy gates unlocks on the verified category and time of day.
func WithPolicy(p Policy) Option {
	return func(l *Lifecycle) { l.policy = p }
}

// WithDemoFallback lets bookkeeping proceed when the gateway is not
// authorized, so the flow can be exercised without an enforcer.
func WithDemoFallback(on bool) Option {
	return func(l *Lifecycle) { l.demoFallback = on }
}

// WithIDFunc overrides session ID generation.
func WithIDFunc(f func() string) Option {
	return func(l *Lifecycle) { l.newID = f }
}

func defaultID() string { return uuid.NewString() }
