// Package imaging prepares images for the generative backend: oversized
// photos are downscaled and re-encoded as JPEG, and EXIF context (capture
// time, GPS position, camera) is read so drafting prompts can mention it.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension is the longest side an image is reduced to
	// before being attached to a model request.
	DefaultMaxDimension = 1024

	// jpegQuality is the re-encode quality for normalized images.
	jpegQuality = 85
)

// Normalize decodes an image, downscales it so its longest side is at most
// maxDimension and re-encodes it as JPEG. Images already small enough are
// re-encoded without resizing. Returns the encoded bytes and their MIME
// type.
func Normalize(data []byte, maxDimension int) ([]byte, string, error) {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	newWidth, newHeight := fitDimensions(origWidth, origHeight, maxDimension)

	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("origWidth", origWidth).
		Int("origHeight", origHeight).
		Int("newWidth", newWidth).
		Int("newHeight", newHeight).
		Int("outputSize", buf.Len()).
		Msg("Image normalized")

	return buf.Bytes(), "image/jpeg", nil
}

// fitDimensions scales (width, height) down so the longest side is at most
// maxDimension, preserving aspect ratio. Smaller images are left alone.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		return maxDimension, int(float64(height) * float64(maxDimension) / float64(width))
	}
	return int(float64(width) * float64(maxDimension) / float64(height)), maxDimension
}
