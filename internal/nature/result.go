package nature

import (
	"errors"
	"time"
)

// ErrInvalidImage is returned when the input cannot be turned into pixel data.
var ErrInvalidImage = errors.New("invalid image")

// Result is the outcome of one verification attempt. It is never mutated
// after construction.
type Result struct {
	Category     Category  `json:"category"`
	IsValid      bool      `json:"is_valid"`
	Confidence   float64   `json:"confidence"`
	ColorScore   float64   `json:"color_score"`
	TextureScore float64   `json:"texture_score"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewResult builds a Result from the two component scores and the pass bar.
func NewResult(c Category, color, texture float64, th Thresholds, at time.Time) Result {
	color = clamp01(color)
	texture = clamp01(texture)
	return Result{
		Category:     c,
		IsValid:      color > th.Color && texture > th.Texture,
		Confidence:   (color + texture) / 2,
		ColorScore:   color,
		TextureScore: texture,
		Timestamp:    at,
	}
}

// IsHighConfidence reports whether the confidence clears 0.7.
func (r Result) IsHighConfidence() bool {
	return r.Confidence > 0.7
}

// ConfidencePercent is the confidence as a whole percentage.
func (r Result) ConfidencePercent() int {
	return int(r.Confidence * 100)
}

// Best returns the valid result with the highest confidence. If none is
// valid it returns the highest-confidence invalid one. ok is false only for
// an empty slice.
func Best(results []Result) (best Result, ok bool) {
	for i, r := range results {
		if i == 0 {
			best, ok = r, true
			continue
		}
		switch {
		case r.IsValid && !best.IsValid:
			best = r
		case r.IsValid == best.IsValid && r.Confidence > best.Confidence:
			best = r
		}
	}
	return best, ok
}
