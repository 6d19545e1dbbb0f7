package document

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pageObject = regexp.MustCompile(`/Type /Page[^s]`)

func testJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestNewPDFAssembler(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)
		assert.Equal(t, float64(DefaultDPI), a.dpi)
	})

	t.Run("rejects non-positive DPI", func(t *testing.T) {
		_, err := NewPDFAssembler(WithDPI(0))
		assert.ErrorIs(t, err, ErrInvalidDPI)
	})
}

func TestPDFAssembler_Assemble(t *testing.T) {
	ctx := context.Background()

	t.Run("one page per image", func(t *testing.T) {
		a, err := NewPDFAssembler(WithDPI(72))
		require.NoError(t, err)

		images := [][]byte{
			testJPEG(t, 320, 240, color.RGBA{R: 255, A: 255}),
			testJPEG(t, 320, 240, color.RGBA{G: 255, A: 255}),
			testJPEG(t, 100, 200, color.RGBA{B: 255, A: 255}),
		}

		doc, err := a.Assemble(ctx, images)
		require.NoError(t, err)

		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
		assert.Len(t, pageObject.FindAll(doc, -1), 3)

		assert.Contains(t, string(doc), "/MediaBox [0 0 320.00 240.00]")
		assert.Contains(t, string(doc), "/MediaBox [0 0 100.00 200.00]")
	})

	t.Run("pages scale with DPI", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)

		doc, err := a.Assemble(ctx, [][]byte{testJPEG(t, 96, 192, color.White)})
		require.NoError(t, err)

		assert.Contains(t, string(doc), "/MediaBox [0 0 72.00 144.00]")
	})

	t.Run("identical frames become distinct pages", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)

		img := testJPEG(t, 8, 8, color.Black)
		doc, err := a.Assemble(ctx, [][]byte{img, img, img, img})
		require.NoError(t, err)
		assert.Len(t, pageObject.FindAll(doc, -1), 4)
	})

	t.Run("empty input", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)

		_, err = a.Assemble(ctx, nil)
		assert.ErrorIs(t, err, ErrNoImages)
	})

	t.Run("malformed image", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)

		_, err = a.Assemble(ctx, [][]byte{testJPEG(t, 4, 4, color.White), []byte("garbage")})
		assert.ErrorIs(t, err, ErrInvalidImage)
		assert.Contains(t, err.Error(), "page 2")
	})

	t.Run("non-JPEG image", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

		_, err = a.Assemble(ctx, [][]byte{buf.Bytes()})
		assert.ErrorIs(t, err, ErrInvalidImage)
	})

	t.Run("cancelled context", func(t *testing.T) {
		a, err := NewPDFAssembler()
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err = a.Assemble(cctx, [][]byte{testJPEG(t, 4, 4, color.White)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
