package img

import (
	"context"
	"image"

	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/failure"
)

// PDFGenerator implements Generator for PDFs by rendering page 1 through a
// converters.Rasterizer.
type PDFGenerator struct {
	rasterizer converters.Rasterizer
	scale      float64
}

// NewPDFGenerator creates a generator rendering at scale × 72 DPI
func NewPDFGenerator(rasterizer converters.Rasterizer, scale float64) *PDFGenerator {
	if scale <= 0 {
		scale = converters.DefaultRenderScale
	}
	return &PDFGenerator{rasterizer: rasterizer, scale: scale}
}

// Generate implements Generator.Generate for PDFs
func (g *PDFGenerator) Generate(ctx context.Context, data []byte) (image.Image, error) {
	const op = "rasterize first page"

	if g.rasterizer == nil {
		return nil, failure.Errorf(failure.RasterizationError, op, "no rasterizer configured")
	}
	if len(data) == 0 {
		return nil, failure.Errorf(failure.RasterizationError, op, "empty document")
	}

	page, err := g.rasterizer.RasterizeFirstPage(ctx, data, g.scale)
	if err != nil {
		return nil, failure.New(failure.RasterizationError, op+" ("+g.rasterizer.Name()+")", err)
	}
	if page == nil {
		return nil, failure.Errorf(failure.RasterizationError, op, "%s returned no image", g.rasterizer.Name())
	}
	return page, nil
}

// Name implements Generator.Name
func (g *PDFGenerator) Name() string {
	if g.rasterizer == nil {
		return "pdf"
	}
	return "pdf/" + g.rasterizer.Name()
}
