package cmd

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fakeyudi/touchgrass/internal/unlock"
)

// writePhoto saves a solid 64x64 PNG and returns its path.
func writePhoto(t *testing.T, name string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return path
}

var (
	lawn  = color.RGBA{40, 170, 50, 255}
	brick = color.RGBA{180, 40, 30, 255}
)

func TestVerifyUnlocksWhileBlocking(t *testing.T) {
	isolate(t)
	mustRun(t, "start", "com.app.a")

	out := mustRun(t, "verify", "--category", "grass", writePhoto(t, "lawn.png", lawn))
	if !strings.Contains(out, "✓ lawn.png") || !strings.Contains(out, "Unlocked for 1h0m0s") {
		t.Errorf("unexpected verify output:\n%s", out)
	}

	out = mustRun(t, "status")
	if !strings.Contains(out, "Blocking: unlocked") || !strings.Contains(out, "Verifications: 1") {
		t.Errorf("status after verify:\n%s", out)
	}
}

func TestVerifyLowConfidence(t *testing.T) {
	isolate(t)
	mustRun(t, "start", "com.app.a")

	out, err := executeCommand(rootCmd, "verify", "--category", "grass", writePhoto(t, "wall.png", brick))
	if !errors.Is(err, unlock.ErrLowConfidence) {
		t.Fatalf("err = %v, want ErrLowConfidence", err)
	}
	if !strings.Contains(out, "Not quite.") {
		t.Errorf("expected a retry prompt, got:\n%s", out)
	}

	out = mustRun(t, "status")
	if !strings.Contains(out, "Blocking: on") {
		t.Errorf("a failed verification must not unlock:\n%s", out)
	}
}

func TestVerifyPicksBestPhoto(t *testing.T) {
	isolate(t)
	mustRun(t, "start", "com.app.a")

	out := mustRun(t, "verify", "--category", "grass",
		writePhoto(t, "wall.png", brick),
		writePhoto(t, "lawn.png", lawn))
	if !strings.Contains(out, "✗ wall.png") || !strings.Contains(out, "Unlocked for") {
		t.Errorf("unexpected verify output:\n%s", out)
	}
}

func TestVerifyWithoutBlocking(t *testing.T) {
	isolate(t)

	out, err := executeCommand(rootCmd, "verify", writePhoto(t, "lawn.png", lawn))
	if !errors.Is(err, unlock.ErrNotBlocking) {
		t.Fatalf("err = %v, want ErrNotBlocking", err)
	}
	if !strings.Contains(out, "blocking is not active") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVerifyUnknownCategory(t *testing.T) {
	isolate(t)

	if _, err := executeCommand(rootCmd, "verify", "--category", "lava", writePhoto(t, "lawn.png", lawn)); err == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestVerifyUnreadableImage(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := executeCommand(rootCmd, "verify", path)
	if err == nil || !strings.Contains(err.Error(), "notes.png") {
		t.Fatalf("err = %v, want an error naming the file", err)
	}
}

func TestVerifyUnknownClassifierVariant(t *testing.T) {
	isolate(t)
	t.Chdir(t.TempDir())
	if err := os.WriteFile(".touchgrassconfig", []byte(`{"classifier": "neural"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mustRun(t, "start", "com.app.a")

	_, err := executeCommand(rootCmd, "verify", writePhoto(t, "lawn.png", lawn))
	if err == nil || !strings.Contains(err.Error(), "unknown classifier variant") {
		t.Fatalf("err = %v, want an unknown variant error", err)
	}
}
