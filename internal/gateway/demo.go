package gateway

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// DemoGateway keeps restrictions in memory. It is always authorized and is
// what Detect falls back to when no enforcer is reachable.
type DemoGateway struct {
	mu      sync.Mutex
	applied []string
	active  bool
	log     zerolog.Logger
	bcast   *Broadcaster
}

// NewDemoGateway returns an in-memory gateway.
func NewDemoGateway(log zerolog.Logger) *DemoGateway {
	g := &DemoGateway{
		log:   log.With().Str("gateway", "demo").Logger(),
		bcast: NewBroadcaster(),
	}
	g.bcast.Publish(false)
	return g
}

func (g *DemoGateway) Name() string { return "demo" }

func (g *DemoGateway) IsAuthorized() bool { return true }

func (g *DemoGateway) RequestAuthorization(ctx context.Context) error {
	return ctx.Err()
}

func (g *DemoGateway) ApplyRestrictions(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	g.applied = normalize(ids)
	g.active = true
	g.mu.Unlock()

	g.log.Info().Strs("ids", ids).Msg("demo: restrictions applied")
	g.bcast.Publish(true)
	return nil
}

func (g *DemoGateway) ClearRestrictions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	g.applied = nil
	g.active = false
	g.mu.Unlock()

	g.log.Info().Msg("demo: restrictions cleared")
	g.bcast.Publish(false)
	return nil
}

func (g *DemoGateway) Subscribe() (<-chan bool, func()) {
	return g.bcast.Subscribe()
}

// Applied returns the identifiers currently restricted.
func (g *DemoGateway) Applied() ([]string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.applied), g.active
}
