package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fakeyudi/touchgrass/internal/logging"
	"github.com/fakeyudi/touchgrass/internal/unlock"
)

// fakeReconciler adopts whatever is on disk when resumed, as the lifecycle does.
type fakeReconciler struct {
	mu      sync.Mutex
	states  unlock.StateStore
	current unlock.State
	resumes chan struct{}
}

func (f *fakeReconciler) Snapshot() unlock.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return unlock.Status{State: f.current}
}

func (f *fakeReconciler) Resume(ctx context.Context) error {
	s, err := f.states.Load()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.current = s
	f.mu.Unlock()
	select {
	case f.resumes <- struct{}{}:
	default:
	}
	return nil
}

func startWatch(t *testing.T, initial unlock.State) (unlock.StateStore, *fakeReconciler) {
	t.Helper()
	dir := t.TempDir()
	states, err := unlock.NewStateStoreIn(dir)
	if err != nil {
		t.Fatalf("NewStateStoreIn: %v", err)
	}
	r := &fakeReconciler{states: states, current: initial, resumes: make(chan struct{}, 16)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dir, states, r, logging.Nop()) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	})
	return states, r
}

func TestWatchResumesOnExternalChange(t *testing.T) {
	states, r := startWatch(t, unlock.State{Phase: unlock.Blocked})

	changed := unlock.State{Phase: unlock.Blocked, Enabled: true, Selection: []string{"com.app.a"}}
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	// The watcher registers asynchronously, so keep writing until it reacts.
	for {
		if err := states.Save(changed); err != nil {
			t.Fatalf("Save: %v", err)
		}
		select {
		case <-r.resumes:
			if got := r.Snapshot().State; !SameState(got, changed) {
				t.Errorf("reconciled state = %+v, want %+v", got, changed)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("Resume was not called after state.json changed")
		}
	}
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	same := unlock.State{Phase: unlock.Blocked, Enabled: true, Selection: []string{"com.app.a"}}
	states, r := startWatch(t, same)

	for i := 0; i < 5; i++ {
		if err := states.Save(same); err != nil {
			t.Fatalf("Save: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case <-r.resumes:
		t.Error("Resume called for a state identical to the published one")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSameState(t *testing.T) {
	t0 := time.Date(2025, 7, 13, 12, 0, 0, 0, time.UTC)
	t1 := t0.In(time.FixedZone("x", 3600))
	later := t0.Add(time.Minute)

	base := unlock.State{Phase: unlock.TemporarilyUnlocked, Enabled: true, Selection: []string{"a"}, UnlockExpiry: &t0}
	tests := []struct {
		name string
		edit func(s unlock.State) unlock.State
		want bool
	}{
		{"identical", func(s unlock.State) unlock.State { return s }, true},
		{"same instant other zone", func(s unlock.State) unlock.State { s.UnlockExpiry = &t1; return s }, true},
		{"different expiry", func(s unlock.State) unlock.State { s.UnlockExpiry = &later; return s }, false},
		{"nil expiry", func(s unlock.State) unlock.State { s.UnlockExpiry = nil; return s }, false},
		{"phase", func(s unlock.State) unlock.State { s.Phase = unlock.Blocked; return s }, false},
		{"selection", func(s unlock.State) unlock.State { s.Selection = []string{"b"}; return s }, false},
		{"pending", func(s unlock.State) unlock.State { s.PendingRelock = true; return s }, false},
		{"pending clear", func(s unlock.State) unlock.State { s.PendingClear = true; return s }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameState(base, tt.edit(base)); got != tt.want {
				t.Errorf("SameState = %v, want %v", got, tt.want)
			}
		})
	}
}
