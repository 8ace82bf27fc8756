// Package watch keeps a long-running lifecycle in step with state written by
// other touchgrass invocations.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/touchgrass/internal/unlock"
)

// StateFile is the file name the lifecycle state store writes.
const StateFile = "state.json"

// Reconciler is the part of unlock.Lifecycle the watcher drives.
type Reconciler interface {
	Snapshot() unlock.Status
	Resume(ctx context.Context) error
}

// Watch watches dir and calls Resume whenever the state on disk differs from
// what r last published. It returns when ctx is cancelled.
func Watch(ctx context.Context, dir string, states unlock.StateStore, r Reconciler, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: stores replace it by rename.
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != StateFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			onDisk, err := states.Load()
			if err != nil {
				log.Warn().Err(err).Msg("reading state written by another process")
				continue
			}
			if SameState(onDisk, r.Snapshot().State) {
				continue
			}
			log.Debug().Str("phase", string(onDisk.Phase)).Bool("enabled", onDisk.Enabled).Msg("state changed on disk")
			if err := r.Resume(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				log.Error().Err(err).Msg("reconciling state")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// SameState reports whether a and b describe the same blocking state.
func SameState(a, b unlock.State) bool {
	return a.Phase == b.Phase &&
		a.Enabled == b.Enabled &&
		a.PendingRelock == b.PendingRelock &&
		a.PendingClear == b.PendingClear &&
		slices.Equal(a.Selection, b.Selection) &&
		sameTime(a.UnlockExpiry, b.UnlockExpiry)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
