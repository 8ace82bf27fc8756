package nature

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Classifier decides whether an image plausibly shows a category.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, c Category) (Result, error)
}

const (
	// DefaultMaxDimension bounds the longest side of the working buffer.
	DefaultMaxDimension = 256
	// DefaultSampleStride is the pixel step used for color sampling.
	DefaultSampleStride = 4

	grassIdealEdge  = 0.05
	grassEdgeSpread = 0.15
	sandIdealSpread = 0.25
)

// ColorRegionClassifier scores photos with color-ratio and texture heuristics.
// It has no model dependency and is deterministic for a given bitmap.
type ColorRegionClassifier struct {
	MaxDimension int
	SampleStride int
	Workers      int
	Thresholds   ThresholdTable
	Now          func() time.Time
}

// NewColorRegionClassifier returns a classifier with default settings.
func NewColorRegionClassifier() *ColorRegionClassifier {
	return &ColorRegionClassifier{
		MaxDimension: DefaultMaxDimension,
		SampleStride: DefaultSampleStride,
		Workers:      4,
		Thresholds:   DefaultThresholds(),
		Now:          time.Now,
	}
}

// Classify scores img for category c.
func (cl *ColorRegionClassifier) Classify(ctx context.Context, img image.Image, c Category) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, ErrInvalidImage
	}
	c, err := ParseCategory(string(c))
	if err != nil {
		return Result{}, err
	}

	work := cl.downsample(img)
	defer workingBuffers.put(work)

	color, err := colorRatio(ctx, work, c, cl.stride())
	if err != nil {
		return Result{}, err
	}

	lum := luminance(work)
	w, h := work.Rect.Dx(), work.Rect.Dy()

	var texture float64
	switch c {
	case Grass:
		texture = grassTexture(lum, w, h)
	case Sand:
		texture = sandTexture(lum, w, h)
	case Snow:
		texture = meanOf(lum)
	case Sky:
		texture = skyGradient(lum, w, h)
	}

	now := time.Now
	if cl.Now != nil {
		now = cl.Now
	}
	return NewResult(c, color, texture, cl.thresholds().For(c), now()), nil
}

// ClassifyAll scores several images concurrently, returning results in input
// order. The first error cancels the remaining work.
func (cl *ColorRegionClassifier) ClassifyAll(ctx context.Context, imgs []image.Image, c Category) ([]Result, error) {
	results := make([]Result, len(imgs))

	g, ctx := errgroup.WithContext(ctx)
	workers := cl.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, img := range imgs {
		g.Go(func() error {
			r, err := cl.Classify(ctx, img, c)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (cl *ColorRegionClassifier) stride() int {
	if cl.SampleStride < 1 {
		return DefaultSampleStride
	}
	return cl.SampleStride
}

func (cl *ColorRegionClassifier) thresholds() ThresholdTable {
	if cl.Thresholds == nil {
		return DefaultThresholds()
	}
	return cl.Thresholds
}

// downsample copies img into a pooled RGBA buffer whose longest side is at
// most MaxDimension. The caller must return the buffer to the pool.
func (cl *ColorRegionClassifier) downsample(img image.Image) *image.RGBA {
	maxDim := cl.MaxDimension
	if maxDim < 1 {
		maxDim = DefaultMaxDimension
	}

	b := img.Bounds()
	scale := math.Min(1, math.Min(float64(maxDim)/float64(b.Dx()), float64(maxDim)/float64(b.Dy())))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	dst := workingBuffers.get(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	}
	return dst
}

// colorRatio returns the fraction of sampled pixels matching c's color rule.
func colorRatio(ctx context.Context, img *image.RGBA, c Category, stride int) (float64, error) {
	match := colorRule(c)
	w, h := img.Rect.Dx(), img.Rect.Dy()

	var matched, total int
	for y := 0; y < h; y += stride {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		row := y * img.Stride
		for x := 0; x < w; x += stride {
			i := row + x*4
			r := float64(img.Pix[i]) / 255
			g := float64(img.Pix[i+1]) / 255
			b := float64(img.Pix[i+2]) / 255
			if match(r, g, b) {
				matched++
			}
			total++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(matched) / float64(total), nil
}

func colorRule(c Category) func(r, g, b float64) bool {
	switch c {
	case Grass:
		return func(r, g, b float64) bool { return g > r*1.2 && g > b*1.2 && g > 0.3 }
	case Snow:
		return func(r, g, b float64) bool { return r > 0.8 && g > 0.8 && b > 0.8 }
	case Sand:
		return func(r, g, b float64) bool { return r > 0.6 && g > 0.5 && b > 0.3 && r > b && g > b*1.2 }
	case Sky:
		return func(r, g, b float64) bool { return b > r*1.2 && b > g*1.1 && b > 0.4 }
	}
	return func(_, _, _ float64) bool { return false }
}

// luminance returns Rec. 601 luma in [0,1], row-major.
func luminance(img *image.RGBA) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			i := row + x*4
			lum[y*w+x] = (0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])) / 255
		}
	}
	return lum
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// grassTexture scores mean Sobel edge strength, peaking at the moderate
// texture of a lawn and falling to zero for high-contrast structure.
func grassTexture(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	maxMag := 4 * math.Sqrt2

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			at := func(dx, dy int) float64 { return lum[(y+dy)*w+x+dx] }
			gx := -at(-1, -1) - 2*at(-1, 0) - at(-1, 1) + at(1, -1) + 2*at(1, 0) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			sum += math.Sqrt(gx*gx+gy*gy) / maxMag
		}
	}
	edge := sum / float64((w-2)*(h-2))
	return clamp01(1 - math.Abs(edge-grassIdealEdge)/grassEdgeSpread)
}

// sandTexture scores the mean 3x3 local standard deviation against the
// granular spread expected of sand.
func sandTexture(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var s, sq float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v := lum[(y+dy)*w+x+dx]
					s += v
					sq += v * v
				}
			}
			mean := s / 9
			variance := sq/9 - mean*mean
			if variance > 0 {
				sum += math.Sqrt(variance)
			}
		}
	}
	// 0.5 is the largest possible standard deviation of values in [0,1].
	spread := (sum / float64((w-2)*(h-2))) / 0.5
	return clamp01(1 - 4*math.Abs(spread-sandIdealSpread))
}

// skyGradient rewards a top band brighter than the bottom band.
func skyGradient(lum []float64, w, h int) float64 {
	band := h / 5
	if band == 0 {
		return 0
	}
	top := meanOf(lum[:band*w])
	bottom := meanOf(lum[(h-band)*w:])
	if top <= bottom {
		return 0
	}
	return math.Min(1, (top-bottom)*2)
}
