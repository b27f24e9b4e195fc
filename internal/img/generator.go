package img

import (
	"context"
	"image"

	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Generator produces the full-size source raster for one media kind.
// Resizing and encoding are the pipeline's job.
type Generator interface {
	// Generate decodes or renders data into a pixel buffer
	Generate(ctx context.Context, data []byte) (image.Image, error)

	// Name returns the generator name for logging
	Name() string
}

// GetGenerator returns the generator for kind:
//   - raster images: decoded in-process
//   - paginated documents: page 1 rendered by the given rasterizer
//   - anything else: InvalidInput
func GetGenerator(kind schema.MediaKind, rasterizer converters.Rasterizer, scale float64) (Generator, error) {
	switch kind {
	case schema.KindRaster:
		return &ImageGenerator{}, nil
	case schema.KindPaginated:
		return NewPDFGenerator(rasterizer, scale), nil
	default:
		return nil, failure.Errorf(failure.InvalidInput, "select generator", "unsupported media kind: %s", kind)
	}
}

// SupportedTypes lists the declared types previews can be derived from
func SupportedTypes() []string {
	return []string{
		// Paginated documents (first page)
		"application/pdf",
		// Raster images
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
		"image/tiff",
	}
}

// ImageGenerator decodes raster images with the imaging library.
type ImageGenerator struct{}

// Generate implements Generator.Generate for images
func (g *ImageGenerator) Generate(ctx context.Context, data []byte) (image.Image, error) {
	return Decode(data)
}

// Name implements Generator.Name
func (g *ImageGenerator) Name() string {
	return "image"
}
