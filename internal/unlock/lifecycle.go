// Package unlock owns the Blocked / TemporarilyUnlocked state machine.
//
// A single goroutine started by Run owns all state. Public operations and
// timer expiries are messages in one FIFO mailbox, so every transition is
// serialized and a cancellation processed before an expiry always wins.
package unlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/nature"
	"github.com/fakeyudi/touchgrass/internal/selection"
	"github.com/fakeyudi/touchgrass/internal/session"
)

var (
	ErrSelectionEmpty   = errors.New("nothing selected to block")
	ErrLowConfidence    = errors.New("photo did not pass verification")
	ErrNotBlocking      = errors.New("blocking is not active")
	ErrDaylightRequired = errors.New("this category can only be verified in daylight")
	ErrInvalidDuration  = errors.New("unlock duration must be positive")
	// ErrRelockPending means restrictions could not be re-applied and a
	// later Resume will try again.
	ErrRelockPending = errors.New("restrictions could not be re-applied")
	// ErrStopped is returned by operations issued after Run has exited.
	ErrStopped = errors.New("lifecycle is not running")
)

type message interface{ isMessage() }

type opMsg struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

type expiryMsg struct{ gen uint64 }

func (opMsg) isMessage()     {}
func (expiryMsg) isMessage() {}

// Lifecycle coordinates the gateway, the stores and the unlock timer.
type Lifecycle struct {
	gw           gateway.Gateway
	clock        Clock
	log          zerolog.Logger
	states       StateStore
	sessions     session.SessionStore
	history      session.HistoryStore
	policy       Policy
	demoFallback bool
	newID        func() string

	inbox chan message
	done  chan struct{}
	once  sync.Once
	bcast *gateway.Broadcaster

	// Owned by the Run goroutine.
	state State
	gen   uint64
	timer Timer

	mu        sync.RWMutex
	published Status
}

// New builds a Lifecycle around gw. Nothing happens until Run is called.
func New(gw gateway.Gateway, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		gw:       gw,
		clock:    realClock{},
		log:      zerolog.Nop(),
		states:   &memStateStore{},
		sessions: &memSessionStore{},
		history:  discardHistory{},
		policy:   AllowAll,
		newID:    defaultID,
		inbox:    make(chan message),
		done:     make(chan struct{}),
		bcast:    gateway.NewBroadcaster(),
		state:    initialState(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.published = Status{State: l.state.clone(), Gateway: gw.Name()}
	return l
}

// Run processes the mailbox until ctx is cancelled. It loads persisted state
// first. Run must be called exactly once.
func (l *Lifecycle) Run(ctx context.Context) error {
	defer l.shutdown()

	if err := l.load(); err != nil {
		l.log.Error().Err(err).Msg("loading persisted state")
	}
	l.publish()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-l.inbox:
			switch m := m.(type) {
			case opMsg:
				m.reply <- m.fn(m.ctx)
			case expiryMsg:
				l.handleExpiry(ctx, m.gen)
			}
		}
	}
}

func (l *Lifecycle) shutdown() {
	l.once.Do(func() {
		if l.timer != nil {
			l.timer.Stop()
		}
		close(l.done)
		l.bcast.Close()
	})
}

// do runs fn on the Run goroutine and waits for its result.
func (l *Lifecycle) do(ctx context.Context, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	select {
	case l.inbox <- opMsg{ctx: ctx, fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartBlocking restricts sel and opens a new session. An already open
// session is archived first.
func (l *Lifecycle) StartBlocking(ctx context.Context, sel []string) error {
	return l.do(ctx, func(ctx context.Context) error {
		ids := selection.Normalize(sel)
		if len(ids) == 0 {
			return ErrSelectionEmpty
		}

		gwErr := l.callGateway(ctx, "apply", func(ctx context.Context) error {
			return l.gw.ApplyRestrictions(ctx, ids)
		})
		if gwErr != nil && !l.fallback(gwErr) {
			return fmt.Errorf("starting blocking: %w", gwErr)
		}

		l.cancelTimer()
		now := l.clock.Now()
		l.closeSession(now)
		if err := l.sessions.Save(session.New(l.newID(), now, ids)); err != nil {
			return err
		}

		l.state = State{Phase: Blocked, Selection: ids, Enabled: true}
		l.log.Info().Strs("ids", ids).Msg("blocking started")
		if err := l.commit(); err != nil {
			return err
		}
		return gwErr
	})
}

// StopBlocking cancels any pending re-lock, lifts restrictions and closes the
// session. Stopping when nothing is active is a no-op.
//
// When the gateway is not authorized the session is still closed and the
// wrapped gateway.ErrNotAuthorized is returned. The state keeps
// PendingClear so a later Resume lifts the restrictions.
func (l *Lifecycle) StopBlocking(ctx context.Context) error {
	return l.do(ctx, func(ctx context.Context) error {
		gwErr := l.callGateway(ctx, "clear", l.gw.ClearRestrictions)
		if gwErr != nil && !errors.Is(gwErr, gateway.ErrNotAuthorized) {
			return fmt.Errorf("stopping blocking: %w", gwErr)
		}

		l.cancelTimer()
		l.closeSession(l.clock.Now())
		l.state = initialState()
		if gwErr != nil {
			l.state.PendingClear = true
			l.log.Warn().Err(gwErr).Msg("restrictions left in force, will clear on resume")
		}
		l.log.Info().Msg("blocking stopped")
		if err := l.commit(); err != nil {
			return err
		}
		if gwErr != nil {
			return fmt.Errorf("stopping blocking: %w", gwErr)
		}
		return nil
	})
}

// AttemptUnlock lifts restrictions for d when res is a valid verification.
// A second valid unlock while unlocked extends the window to now+d.
func (l *Lifecycle) AttemptUnlock(ctx context.Context, res nature.Result, d time.Duration) error {
	return l.do(ctx, func(ctx context.Context) error {
		if !res.IsValid {
			return ErrLowConfidence
		}
		if !l.state.Enabled {
			return ErrNotBlocking
		}
		if d <= 0 {
			return ErrInvalidDuration
		}
		now := l.clock.Now()
		if l.policy != nil && !l.policy(res.Category, now) {
			return ErrDaylightRequired
		}

		gwErr := l.callGateway(ctx, "clear", l.gw.ClearRestrictions)
		if gwErr != nil && !l.fallback(gwErr) {
			return fmt.Errorf("unlocking: %w", gwErr)
		}

		expiry := now.Add(d)
		l.state.Phase = TemporarilyUnlocked
		l.state.UnlockExpiry = &expiry
		l.state.PendingRelock = false
		l.recordVerification(now, d, res.Category)
		l.armTimer(d)

		l.log.Info().
			Str("category", res.Category.String()).
			Int("confidence", res.ConfidencePercent()).
			Time("expires", expiry).
			Msg("temporarily unlocked")
		if err := l.commit(); err != nil {
			return err
		}
		return gwErr
	})
}

// Resume reconciles with persisted state, as after a restart or when
// another process changed it. An expiry that passed while nothing was
// running re-locks now. Corrupt state is logged and replaced by the initial
// state.
func (l *Lifecycle) Resume(ctx context.Context) error {
	return l.do(ctx, func(ctx context.Context) error {
		if err := l.load(); err != nil {
			if !errors.Is(err, ErrCorruptState) {
				return err
			}
			l.log.Error().Err(err).Msg("discarding unreadable lifecycle state")
			l.state = initialState()
		}
		l.cancelTimer()
		now := l.clock.Now()

		switch {
		case !l.state.Enabled:
			l.state.PendingRelock = false
			if l.state.PendingClear {
				l.retryClear(ctx)
			}
		case l.state.PendingRelock:
			l.relock(ctx)
		case l.state.Phase == TemporarilyUnlocked:
			if !now.Before(*l.state.UnlockExpiry) {
				l.relock(ctx)
			} else {
				l.armTimer(l.state.UnlockExpiry.Sub(now))
			}
		default:
			err := l.callGateway(ctx, "apply", func(ctx context.Context) error {
				return l.gw.ApplyRestrictions(ctx, l.state.Selection)
			})
			if err != nil && !l.fallback(err) {
				l.state.PendingRelock = true
				l.log.Error().Err(err).Msg("re-applying restrictions on resume")
			}
		}

		if err := l.commit(); err != nil {
			return err
		}
		if l.state.PendingRelock {
			return ErrRelockPending
		}
		return nil
	})
}

// UpdateSelection replaces the selection, re-applying restrictions when
// blocking is in force.
func (l *Lifecycle) UpdateSelection(ctx context.Context, sel []string) error {
	return l.do(ctx, func(ctx context.Context) error {
		ids := selection.Normalize(sel)
		if len(ids) == 0 && l.state.Enabled {
			return ErrSelectionEmpty
		}

		if l.state.IsBlocking() {
			err := l.callGateway(ctx, "apply", func(ctx context.Context) error {
				return l.gw.ApplyRestrictions(ctx, ids)
			})
			if err != nil && !l.fallback(err) {
				return fmt.Errorf("updating selection: %w", err)
			}
			l.state.PendingRelock = false
		}

		l.state.Selection = ids
		if s, err := l.sessions.Load(); err == nil {
			s.TargetIdentifiers = ids
			if err := l.sessions.Save(s); err != nil {
				return err
			}
		}
		return l.commit()
	})
}

// Snapshot returns the latest published status. It does not block on the
// mailbox.
func (l *Lifecycle) Snapshot() Status {
	l.mu.RLock()
	st := l.published
	l.mu.RUnlock()

	st.State = st.State.clone()
	st.Remaining = 0
	if st.Phase == TemporarilyUnlocked && st.UnlockExpiry != nil {
		if rem := st.UnlockExpiry.Sub(l.clock.Now()); rem > 0 {
			st.Remaining = rem
		}
	}
	return st
}

// Subscribe streams the isBlocking flag after every transition.
func (l *Lifecycle) Subscribe() (<-chan bool, func()) {
	return l.bcast.Subscribe()
}

// handleExpiry re-locks when the message belongs to the current window.
func (l *Lifecycle) handleExpiry(ctx context.Context, gen uint64) {
	if gen != l.gen || l.state.Phase != TemporarilyUnlocked || !l.state.Enabled {
		l.log.Debug().Uint64("gen", gen).Msg("stale expiry ignored")
		return
	}
	now := l.clock.Now()
	if now.Before(*l.state.UnlockExpiry) {
		l.armTimer(l.state.UnlockExpiry.Sub(now))
		return
	}

	l.relock(ctx)
	if err := l.commit(); err != nil {
		l.log.Error().Err(err).Msg("persisting state after re-lock")
	}
}

// relock re-applies restrictions for the current selection. The phase
// becomes Blocked even when the gateway fails; PendingRelock marks the
// failure for the next Resume.
func (l *Lifecycle) relock(ctx context.Context) {
	err := l.callGateway(ctx, "apply", func(ctx context.Context) error {
		return l.gw.ApplyRestrictions(ctx, l.state.Selection)
	})

	l.state.Phase = Blocked
	l.state.UnlockExpiry = nil
	l.state.PendingRelock = err != nil && !l.fallback(err)
	if l.state.PendingRelock {
		l.log.Error().Err(err).Msg("re-lock failed, will retry on resume")
		return
	}
	l.log.Info().Strs("ids", l.state.Selection).Msg("unlock window elapsed, restrictions re-applied")
}

// retryClear lifts restrictions left behind by an unauthorized stop. A
// failure keeps PendingClear for the next Resume.
func (l *Lifecycle) retryClear(ctx context.Context) {
	if err := l.callGateway(ctx, "clear", l.gw.ClearRestrictions); err != nil {
		l.log.Warn().Err(err).Msg("restrictions from a stopped session are still in force")
		return
	}
	l.state.PendingClear = false
	l.log.Info().Msg("restrictions from a stopped session cleared")
}

// callGateway runs f, retrying once on a transient failure.
func (l *Lifecycle) callGateway(ctx context.Context, op string, f func(context.Context) error) error {
	err := f(ctx)
	if errors.Is(err, gateway.ErrTransient) {
		l.log.Warn().Err(err).Str("op", op).Msg("transient gateway failure, retrying once")
		err = f(ctx)
	}
	return err
}

// fallback reports whether err may be ignored for bookkeeping purposes.
func (l *Lifecycle) fallback(err error) bool {
	if l.demoFallback && errors.Is(err, gateway.ErrNotAuthorized) {
		l.log.Warn().Msg("gateway not authorized, continuing in demo mode")
		return true
	}
	return false
}

func (l *Lifecycle) armTimer(d time.Duration) {
	l.cancelTimer()
	gen := l.gen
	l.timer = l.clock.AfterFunc(d, func() {
		select {
		case l.inbox <- expiryMsg{gen: gen}:
		case <-l.done:
		}
	})
}

// cancelTimer invalidates any pending expiry, including one already queued.
func (l *Lifecycle) cancelTimer() {
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Lifecycle) recordVerification(now time.Time, d time.Duration, c nature.Category) {
	s, err := l.sessions.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			l.log.Error().Err(err).Msg("loading session")
		}
		s = session.New(l.newID(), now, l.state.Selection)
	}
	s.RecordVerification(d, c.String())
	if err := l.sessions.Save(s); err != nil {
		l.log.Error().Err(err).Msg("saving session")
	}
}

// closeSession ends the open session, if any, and archives it.
func (l *Lifecycle) closeSession(now time.Time) {
	s, err := l.sessions.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			l.log.Error().Err(err).Msg("loading session")
		}
		return
	}
	s.End(now)
	if err := l.history.Append(s); err != nil {
		l.log.Error().Err(err).Msg("archiving session")
		return
	}
	if err := l.sessions.Delete(); err != nil {
		l.log.Error().Err(err).Msg("deleting session")
	}
}

func (l *Lifecycle) load() error {
	s, err := l.states.Load()
	if err != nil {
		return err
	}
	l.state = sanitize(s)
	return nil
}

// commit persists and publishes the current state.
func (l *Lifecycle) commit() error {
	err := l.states.Save(l.state)
	l.publish()
	return err
}

func (l *Lifecycle) publish() {
	st := Status{State: l.state.clone(), Gateway: l.gw.Name()}
	if s, err := l.sessions.Load(); err == nil {
		st.Session = s
	}

	l.mu.Lock()
	l.published = st
	l.mu.Unlock()

	l.bcast.Publish(l.state.IsBlocking())
}
