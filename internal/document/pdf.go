// Package document assembles ordered raster images into a paginated PDF.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG for DecodeConfig

	"github.com/go-pdf/fpdf"
)

// DefaultDPI is the pixel density assumed when sizing pages.
const DefaultDPI = 96

// creator is written to the Creator entry of the document information dictionary.
const creator = "video2pdf"

// Static errors for document assembly.
var (
	// ErrNoImages is returned when there is nothing to assemble.
	ErrNoImages = errors.New("document: no images to assemble")
	// ErrInvalidImage is returned when an image cannot be read.
	ErrInvalidImage = errors.New("document: invalid image")
	// ErrInvalidDPI is returned when the configured DPI is not positive.
	ErrInvalidDPI = errors.New("document: DPI must be positive")
)

// PDFAssembler writes one page per JPEG image, each page the size of its image.
type PDFAssembler struct {
	dpi float64
}

// Option configures a PDFAssembler.
type Option func(*PDFAssembler)

// WithDPI sets the pixel density used to convert image pixels to points.
func WithDPI(dpi float64) Option {
	return func(a *PDFAssembler) {
		a.dpi = dpi
	}
}

// NewPDFAssembler creates a PDFAssembler.
func NewPDFAssembler(opts ...Option) (*PDFAssembler, error) {
	a := &PDFAssembler{
		dpi: DefaultDPI,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.dpi <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDPI, a.dpi)
	}
	return a, nil
}

// Assemble builds a PDF with one page per image, in the given order.
func (a *PDFAssembler) Assemble(ctx context.Context, images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		SizeStr:        "A4",
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(creator, true)

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, data := range images {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrInvalidImage, i+1, err)
		}
		if format != "jpeg" {
			return nil, fmt.Errorf("%w: page %d: unsupported format %q", ErrInvalidImage, i+1, format)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, fmt.Errorf("%w: page %d: %dx%d", ErrInvalidImage, i+1, cfg.Width, cfg.Height)
		}

		w := float64(cfg.Width) * 72 / a.dpi
		h := float64(cfg.Height) * 72 / a.dpi

		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

		if pdf.Err() {
			return nil, fmt.Errorf("render page %d: %w", i+1, pdf.Error())
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}
