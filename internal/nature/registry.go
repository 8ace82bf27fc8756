package nature

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NewClassifier creates a classifier for the named variant.
func NewClassifier(variant string) (Classifier, error) {
	switch variant {
	case "color", "":
		return NewColorRegionClassifier(), nil
	case "ml":
		return nil, fmt.Errorf("ml classifier not yet implemented")
	default:
		return nil, fmt.Errorf("unknown classifier variant: %s", variant)
	}
}

// Decode reads a bitmap in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
