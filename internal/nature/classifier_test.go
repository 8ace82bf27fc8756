package nature

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// solid returns a w×h image filled with c.
func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// checker alternates a and b pixel by pixel.
func checker(w, h int, a, b color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}

// stripes paints two-pixel-wide vertical bands of a and b.
func stripes(w, h int, a, b color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/2)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}

// verticalGradient blends from top to bottom.
func verticalGradient(w, h int, top, bottom color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	lerp := func(a, b uint8, t float64) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	for y := 0; y < h; y++ {
		t := float64(y) / float64(h-1)
		c := color.RGBA{lerp(top.R, bottom.R, t), lerp(top.G, bottom.G, t), lerp(top.B, bottom.B, t), 255}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	green = color.RGBA{20, 200, 30, 255}
	red   = color.RGBA{220, 20, 20, 255}
	white = color.RGBA{250, 250, 250, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func TestClassifyAllGreenIsGrass(t *testing.T) {
	cl := NewColorRegionClassifier()
	r, err := cl.Classify(context.Background(), solid(64, 64, green), Grass)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.ColorScore < 0.8 {
		t.Errorf("ColorScore = %.3f, want >= 0.8", r.ColorScore)
	}
	if !r.IsValid {
		t.Errorf("expected valid grass result, got %+v", r)
	}
	if r.Category != Grass {
		t.Errorf("Category = %s, want grass", r.Category)
	}
}

func TestClassifyAllRedIsNotGrass(t *testing.T) {
	cl := NewColorRegionClassifier()
	r, err := cl.Classify(context.Background(), solid(64, 64, red), Grass)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.ColorScore > 0.01 {
		t.Errorf("ColorScore = %.3f, want ~0", r.ColorScore)
	}
	if r.IsValid {
		t.Errorf("red image must not pass as grass: %+v", r)
	}
}

func TestClassifyHighContrastGreenFailsGrassTexture(t *testing.T) {
	cl := NewColorRegionClassifier()
	r, err := cl.Classify(context.Background(), stripes(64, 64, green, black), Grass)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.TextureScore != 0 {
		t.Errorf("TextureScore = %.3f, want 0 for hard stripes", r.TextureScore)
	}
	if r.IsValid {
		t.Error("striped image must not pass as grass")
	}
}

func TestClassifySnow(t *testing.T) {
	cl := NewColorRegionClassifier()
	r, err := cl.Classify(context.Background(), solid(64, 64, white), Snow)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !r.IsValid || r.TextureScore < 0.9 {
		t.Errorf("white image should be valid snow, got %+v", r)
	}

	r, err = cl.Classify(context.Background(), solid(64, 64, black), Snow)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.IsValid {
		t.Errorf("black image must not pass as snow: %+v", r)
	}
}

func TestClassifySand(t *testing.T) {
	light := color.RGBA{240, 210, 150, 255}
	dark := color.RGBA{190, 160, 100, 255}
	cl := NewColorRegionClassifier()

	r, err := cl.Classify(context.Background(), checker(64, 64, light, dark), Sand)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !r.IsValid {
		t.Errorf("granular sand should be valid, got %+v", r)
	}

	r, err = cl.Classify(context.Background(), solid(64, 64, light), Sand)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.ColorScore < 0.9 {
		t.Errorf("flat sand ColorScore = %.3f, want >= 0.9", r.ColorScore)
	}
	if r.IsValid {
		t.Errorf("perfectly flat sand should fail the texture bar, got %+v", r)
	}
}

func TestClassifySkyGradient(t *testing.T) {
	top := color.RGBA{150, 190, 255, 255}
	bottom := color.RGBA{20, 60, 140, 255}
	cl := NewColorRegionClassifier()

	r, err := cl.Classify(context.Background(), verticalGradient(64, 100, top, bottom), Sky)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !r.IsValid {
		t.Errorf("bright-top blue gradient should be valid sky, got %+v", r)
	}

	// Upside down: darker at the top.
	r, err = cl.Classify(context.Background(), verticalGradient(64, 100, bottom, top), Sky)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.TextureScore != 0 || r.IsValid {
		t.Errorf("inverted gradient should score 0 texture, got %+v", r)
	}
}

func TestClassifyDownsamplesLargeImages(t *testing.T) {
	cl := NewColorRegionClassifier()
	cl.MaxDimension = 32
	r, err := cl.Classify(context.Background(), solid(1200, 300, green), Grass)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.ColorScore < 0.99 {
		t.Errorf("ColorScore = %.3f after downsampling, want ~1", r.ColorScore)
	}
}

func TestClassifyInvalidImage(t *testing.T) {
	cl := NewColorRegionClassifier()
	if _, err := cl.Classify(context.Background(), nil, Grass); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("nil image: got %v, want ErrInvalidImage", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := cl.Classify(context.Background(), empty, Grass); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("empty image: got %v, want ErrInvalidImage", err)
	}
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Decode garbage: got %v, want ErrInvalidImage", err)
	}
}

func TestClassifyRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewColorRegionClassifier().Classify(ctx, solid(16, 16, green), Grass)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestDecodePNGRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(8, 8, green)); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("width = %d, want 8", img.Bounds().Dx())
	}
}

func TestClassifyAllKeepsOrder(t *testing.T) {
	cl := NewColorRegionClassifier()
	imgs := []image.Image{solid(32, 32, red), solid(32, 32, green), solid(32, 32, white)}
	results, err := cl.ClassifyAll(context.Background(), imgs, Grass)
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if results[0].IsValid || !results[1].IsValid || results[2].IsValid {
		t.Errorf("unexpected validity pattern: %v %v %v", results[0].IsValid, results[1].IsValid, results[2].IsValid)
	}

	best, ok := Best(results)
	if !ok || !best.IsValid {
		t.Errorf("Best should pick the valid green result, got %+v", best)
	}
}

func TestClassifyAllPropagatesErrors(t *testing.T) {
	cl := NewColorRegionClassifier()
	_, err := cl.ClassifyAll(context.Background(), []image.Image{solid(8, 8, green), nil}, Grass)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("got %v, want ErrInvalidImage", err)
	}
}

func TestNewClassifierRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"color", false},
		{"", false},
		{"ml", true},
		{"random", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			cl, err := NewClassifier(tt.variant)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil || cl == nil {
				t.Errorf("unexpected: classifier=%v err=%v", cl, err)
			}
		})
	}
}

// genImage draws a small random bitmap.
func genImage(t *rapid.T) *image.RGBA {
	w := rapid.IntRange(1, 40).Draw(t, "w")
	h := rapid.IntRange(1, 40).Draw(t, "h")
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	pix := rapid.SliceOfN(rapid.Byte(), len(img.Pix), len(img.Pix)).Draw(t, "pix")
	copy(img.Pix, pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// Property: classification is a pure function of bitmap and category.
func TestClassifyDeterministic(t *testing.T) {
	cl := NewColorRegionClassifier()
	rapid.Check(t, func(t *rapid.T) {
		img := genImage(t)
		c := rapid.SampledFrom(AllCategories()).Draw(t, "category")

		a, err := cl.Classify(context.Background(), img, c)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		b, err := cl.Classify(context.Background(), img, c)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if a.ColorScore != b.ColorScore || a.TextureScore != b.TextureScore || a.IsValid != b.IsValid {
			t.Fatalf("non-deterministic: %+v vs %+v", a, b)
		}
	})
}

// Property: scores stay in [0,1], confidence is their mean, and validity
// implies both thresholds were cleared.
func TestClassifyScoreBounds(t *testing.T) {
	cl := NewColorRegionClassifier()
	rapid.Check(t, func(t *rapid.T) {
		img := genImage(t)
		c := rapid.SampledFrom(AllCategories()).Draw(t, "category")

		r, err := cl.Classify(context.Background(), img, c)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		for name, v := range map[string]float64{"color": r.ColorScore, "texture": r.TextureScore, "confidence": r.Confidence} {
			if v < 0 || v > 1 {
				t.Fatalf("%s score %f out of [0,1]", name, v)
			}
		}
		if math.Abs(r.Confidence-(r.ColorScore+r.TextureScore)/2) > 1e-12 {
			t.Fatalf("confidence %f is not the mean of %f and %f", r.Confidence, r.ColorScore, r.TextureScore)
		}
		th := DefaultThresholds().For(c)
		if r.IsValid && (r.ColorScore <= th.Color || r.TextureScore <= th.Texture) {
			t.Fatalf("valid result below thresholds %+v: %+v", th, r)
		}
	})
}

func TestResultDerivedValues(t *testing.T) {
	at := time.Date(2025, 7, 13, 12, 0, 0, 0, time.UTC)
	r := NewResult(Grass, 0.9, 0.6, DefaultThresholds().For(Grass), at)
	if !r.IsHighConfidence() {
		t.Errorf("confidence %.2f should be high", r.Confidence)
	}
	if r.ConfidencePercent() != 75 {
		t.Errorf("ConfidencePercent = %d, want 75", r.ConfidencePercent())
	}

	r = NewResult(Grass, 0.9, 0.4, DefaultThresholds().For(Grass), at)
	if r.IsValid {
		t.Error("texture 0.4 is below the grass bar; want invalid")
	}
}

func TestLoadThresholdsOverrideAndClamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	table := ThresholdTable{Grass: {Color: 0.1, Texture: 1.7}}
	if err := WriteThresholds(table, path); err != nil {
		t.Fatalf("WriteThresholds: %v", err)
	}

	loaded, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("LoadThresholds: %v", err)
	}
	if got := loaded.For(Grass); got.Color != 0.1 || got.Texture != 1 {
		t.Errorf("grass = %+v, want {0.1 1}", got)
	}
	if got, want := loaded.For(Snow), DefaultThresholds()[Snow]; got != want {
		t.Errorf("snow = %+v, want default %+v", got, want)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" Sky "); err != nil || c != Sky {
		t.Errorf("ParseCategory(Sky) = %v, %v", c, err)
	}
	if _, err := ParseCategory("lava"); err == nil {
		t.Error("expected error for unknown category")
	}
}
