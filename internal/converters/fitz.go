package converters

import (
	"context"
	"fmt"
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

// FitzConverter renders pages in-process with MuPDF.
type FitzConverter struct{}

// NewFitzConverter creates a MuPDF-backed rasterizer
func NewFitzConverter() *FitzConverter {
	return &FitzConverter{}
}

// Name returns the converter name
func (f *FitzConverter) Name() string {
	return "fitz"
}

// RasterizeFirstPage implements Rasterizer
func (f *FitzConverter) RasterizeFirstPage(ctx context.Context, data []byte, scale float64) (image.Image, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("open document: empty input")
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, ErrNoPages
	}

	page, err := doc.ImageDPI(0, dpiForScale(scale))
	if err != nil {
		return nil, fmt.Errorf("render page 1: %w", err)
	}
	return page, nil
}
