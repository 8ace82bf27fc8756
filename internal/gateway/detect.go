package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Gateway modes accepted by Detect.
const (
	ModeAuto = "auto"
	ModeFile = "file"
	ModeDemo = "demo"
)

// Detect chooses the gateway for this process. "demo" always yields the
// in-memory gateway. "file" and "auto" use the shield directory when it is
// writable; otherwise they fall back to demo. "file" with no directory
// configured is an error.
func Detect(ctx context.Context, mode, shieldDir string, log zerolog.Logger) (Gateway, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeDemo:
		return NewDemoGateway(log), nil
	case ModeFile, ModeAuto:
	default:
		return nil, fmt.Errorf("unknown gateway mode %q (want auto, file or demo)", mode)
	}

	if shieldDir == "" {
		if mode == ModeFile {
			return nil, fmt.Errorf("gateway mode %q needs shield_dir", mode)
		}
		return NewDemoGateway(log), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writable(shieldDir); err != nil {
		log.Warn().Err(err).Str("dir", shieldDir).Msg("shield directory unusable, falling back to demo gateway")
		return NewDemoGateway(log), nil
	}
	return NewFileGateway(shieldDir, log), nil
}

func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
