// Package converters renders the first page of paginated documents into
// pixel buffers. Each converter is one way of doing that in a given runtime.
package converters

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// DefaultRenderScale is the base scale pages are rendered at before the
// resize policy brings them down to preview width. 1.0 is 72 DPI.
const DefaultRenderScale = 1.5

// ErrNoPages is returned when a document parses but has nothing to render.
var ErrNoPages = errors.New("document has no pages")

// Rasterizer turns page 1 of a paginated document into a pixel buffer.
type Rasterizer interface {
	// Name returns the converter name (e.g., "fitz", "poppler", "chrome")
	Name() string

	// RasterizeFirstPage renders the first page at scale × 72 DPI.
	RasterizeFirstPage(ctx context.Context, data []byte, scale float64) (image.Image, error)
}

// FileInfo contains metadata about a paginated document
type FileInfo struct {
	MimeType string // MIME type detected from file
	Pages    int    // Number of pages
	Size     int64  // File size in bytes
}

// New returns the rasterizer registered under name.
func New(name string) (Rasterizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fitz", "mupdf":
		return NewFitzConverter(), nil
	case "poppler", "pdftoppm":
		return NewPopplerConverter(), nil
	case "chrome", "chromium", "headless":
		return NewChromeConverter(), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q (supported: fitz, poppler, chrome)", name)
	}
}

// Names lists the rasterizers New understands.
func Names() []string {
	return []string{"fitz", "poppler", "chrome"}
}

func dpiForScale(scale float64) float64 {
	if scale <= 0 {
		scale = DefaultRenderScale
	}
	return 72 * scale
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
