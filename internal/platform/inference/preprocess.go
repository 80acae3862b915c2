package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/anthonynsimon/bild/transform"
)

// jpegQuality is the quality used when shipping images to the service.
const jpegQuality = 90

// EncodeForModel resizes img to a size x size square and encodes it as JPEG.
// A size of zero or less sends the image at its original resolution.
func EncodeForModel(img image.Image, size int) ([]byte, error) {
	if size > 0 {
		img = transform.Resize(img, size, size, transform.Linear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
