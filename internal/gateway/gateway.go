// Package gateway applies and clears app restrictions on behalf of the
// unlock lifecycle. Callers only hold the Gateway interface; Detect picks the
// concrete implementation once at process start.
package gateway

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotAuthorized means the platform has not granted restriction rights.
	ErrNotAuthorized = errors.New("app blocking is not authorized")
	// ErrTransient marks a failure worth one retry.
	ErrTransient = errors.New("transient gateway failure")
)

// Gateway is the boundary to whatever actually enforces restrictions.
type Gateway interface {
	Name() string
	IsAuthorized() bool
	RequestAuthorization(ctx context.Context) error
	// ApplyRestrictions replaces the restricted set with ids. Idempotent.
	ApplyRestrictions(ctx context.Context, ids []string) error
	// ClearRestrictions lifts every restriction. Idempotent.
	ClearRestrictions(ctx context.Context) error
	// Subscribe streams the isBlocking flag. Call cancel to unsubscribe.
	Subscribe() (<-chan bool, func())
}

// Broadcaster fans a bool out to every subscriber. Each subscriber holds at
// most one pending value; a slow reader sees only the latest.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan bool
	last *bool
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan bool)}
}

// Subscribe registers a listener. The current value, if any, is delivered
// immediately.
func (b *Broadcaster) Subscribe() (<-chan bool, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan bool, 1)
	if b.last != nil {
		ch <- *b.last
	}
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish sends v to every subscriber, replacing any value they have not
// read yet.
func (b *Broadcaster) Publish(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = &v
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Close unsubscribes everyone.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// normalize copies ids, dropping blanks. Order is preserved.
func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
