package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// DefaultJPEGQuality is the quality used for sampled frames.
const DefaultJPEGQuality = 95

// ErrInvalidQuality is returned when a JPEG quality is outside 1..100.
var ErrInvalidQuality = errors.New("invalid JPEG quality: must be between 1 and 100")

// Encoder turns a decoded frame into compressed image bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// JPEGEncoder encodes frames as baseline JPEG.
type JPEGEncoder struct {
	quality int
}

// NewJPEGEncoder creates a JPEGEncoder. A zero quality selects DefaultJPEGQuality.
func NewJPEGEncoder(quality int) (*JPEGEncoder, error) {
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	return &JPEGEncoder{quality: quality}, nil
}

// Quality returns the configured JPEG quality.
func (e *JPEGEncoder) Quality() int {
	return e.quality
}

// Encode converts img to RGB ordering and encodes it.
func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("encode: nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("encode: empty image bounds %v", b)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, toRGB(img), &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// toRGB returns img in a layout the JPEG writer reads as RGB without
// guessing at the source channel order.
func toRGB(img image.Image) image.Image {
	switch img.(type) {
	case *image.RGBA, *image.YCbCr, *image.Gray:
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
