package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	manifestName = "shield.json"
	markerName   = "authorized"
)

// Manifest is the document an external enforcer reads to know what to block.
type Manifest struct {
	Identifiers []string  `json:"identifiers"`
	AppliedAt   time.Time `json:"applied_at"`
}

// FileGateway publishes restrictions as a manifest file in a shield
// directory. Authorization is the presence of an "authorized" marker there.
type FileGateway struct {
	dir   string
	log   zerolog.Logger
	now   func() time.Time
	bcast *Broadcaster
}

// NewFileGateway returns a gateway rooted at dir. The directory is created
// on first use.
func NewFileGateway(dir string, log zerolog.Logger) *FileGateway {
	g := &FileGateway{
		dir:   dir,
		log:   log.With().Str("gateway", "file").Logger(),
		now:   time.Now,
		bcast: NewBroadcaster(),
	}
	g.bcast.Publish(g.isBlocking())
	return g
}

func (g *FileGateway) Name() string { return "file" }

// Dir returns the shield directory.
func (g *FileGateway) Dir() string { return g.dir }

func (g *FileGateway) IsAuthorized() bool {
	_, err := os.Stat(filepath.Join(g.dir, markerName))
	return err == nil
}

// RequestAuthorization creates the marker file. It fails with
// ErrNotAuthorized when the shield directory is not writable.
func (g *FileGateway) RequestAuthorization(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	}
	if err := os.WriteFile(filepath.Join(g.dir, markerName), []byte(g.now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	}
	g.log.Info().Str("dir", g.dir).Msg("authorization granted")
	return nil
}

func (g *FileGateway) ApplyRestrictions(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !g.IsAuthorized() {
		return ErrNotAuthorized
	}

	m := Manifest{Identifiers: normalize(ids), AppliedAt: g.now().UTC()}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding shield manifest: %w", err)
	}
	if err := writeAtomic(filepath.Join(g.dir, manifestName), data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	g.log.Debug().Strs("ids", m.Identifiers).Msg("restrictions applied")
	g.bcast.Publish(true)
	return nil
}

func (g *FileGateway) ClearRestrictions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !g.IsAuthorized() {
		return ErrNotAuthorized
	}
	if err := os.Remove(filepath.Join(g.dir, manifestName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	g.log.Debug().Msg("restrictions cleared")
	g.bcast.Publish(false)
	return nil
}

func (g *FileGateway) Subscribe() (<-chan bool, func()) {
	return g.bcast.Subscribe()
}

// ReadManifest returns the manifest currently on disk. ok is false when no
// restrictions are applied.
func (g *FileGateway) ReadManifest() (m Manifest, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(g.dir, manifestName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("parsing shield manifest: %w", err)
	}
	return m, true, nil
}

func (g *FileGateway) isBlocking() bool {
	_, ok, _ := g.ReadManifest()
	return ok
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
