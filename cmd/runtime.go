package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fakeyudi/touchgrass/internal/gateway"
	"github.com/fakeyudi/touchgrass/internal/selection"
	"github.com/fakeyudi/touchgrass/internal/session"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

// runtime is one process's view of the blocking lifecycle: the detected
// gateway, the stores in the data directory and a running Lifecycle.
type runtime struct {
	dir        string
	gw         gateway.Gateway
	lc         *unlock.Lifecycle
	states     unlock.StateStore
	sessions   session.SessionStore
	history    session.HistoryStore
	selections *selection.Store

	cancel context.CancelFunc
	done   chan error
}

// openRuntime builds the lifecycle from cfg, starts it and reconciles with
// whatever earlier invocations persisted.
func openRuntime(ctx context.Context) (*runtime, error) {
	dir, err := session.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	gw, err := gateway.Detect(ctx, cfg.GatewayMode, cfg.ShieldDir, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{dir: dir, gw: gw, done: make(chan error, 1)}
	if rt.states, err = unlock.NewStateStoreIn(dir); err != nil {
		return nil, err
	}
	if rt.sessions, err = session.NewSessionStoreIn(dir); err != nil {
		return nil, err
	}
	if rt.history, err = session.NewHistoryStoreIn(dir); err != nil {
		return nil, err
	}
	if rt.selections, err = selection.NewStore(dir); err != nil {
		return nil, err
	}

	opts := []unlock.Option{
		unlock.WithLogger(logger),
		unlock.WithStateStore(rt.states),
		unlock.WithSessionStore(rt.sessions),
		unlock.WithHistoryStore(rt.history),
		unlock.WithDemoFallback(cfg.Demo()),
	}
	if cfg.Daylight() {
		opts = append(opts, unlock.WithPolicy(unlock.DaylightOnly(6, 20)))
	}
	rt.lc = unlock.New(gw, opts...)

	runCtx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	go func() { rt.done <- rt.lc.Run(runCtx) }()

	if err := rt.lc.Resume(ctx); err != nil {
		if !errors.Is(err, unlock.ErrRelockPending) {
			rt.Close()
			return nil, fmt.Errorf("restoring state: %w", err)
		}
		logger.Warn().Err(err).Msg("restrictions are not in force yet")
	}
	return rt, nil
}

// Close stops the lifecycle and waits for it to exit.
func (rt *runtime) Close() {
	rt.cancel()
	select {
	case <-rt.done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("lifecycle did not stop in time")
	}
}
