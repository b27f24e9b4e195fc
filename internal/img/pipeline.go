package img

import (
	"context"
	"slices"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Deriver turns source bytes plus a declared type into preview bytes.
type Deriver interface {
	Derive(ctx context.Context, data []byte, declared string) (*Preview, error)
}

// Preview is one derived thumbnail.
type Preview struct {
	Data         []byte
	MimeType     string
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	Kind         schema.MediaKind
	Generator    string
	Quality      int
	Elapsed      time.Duration
}

// Size returns the encoded length in bytes.
func (p *Preview) Size() int { return len(p.Data) }

// DerivationParams describes how the preview was produced, for events.
func (p *Preview) DerivationParams() *schema.DerivationParams {
	return &schema.DerivationParams{
		SourceWidth:    p.SourceWidth,
		SourceHeight:   p.SourceHeight,
		TargetWidth:    p.Width,
		TargetHeight:   p.Height,
		Algorithm:      "lanczos",
		Quality:        p.Quality,
		ProcessingTime: p.Elapsed.Milliseconds(),
		GeneratedAt:    time.Now().Unix(),
	}
}

// Options configures a Pipeline. Zero values fall back to the defaults.
type Options struct {
	MaxWidth    int
	Quality     int
	RenderScale float64
	Rasterizer  converters.Rasterizer
}

// Pipeline classifies, decodes or rasterizes, resizes and encodes. It holds
// no per-call state and is safe for concurrent use.
type Pipeline struct {
	maxWidth   int
	quality    int
	scale      float64
	rasterizer converters.Rasterizer
}

func NewPipeline(opts Options) *Pipeline {
	p := &Pipeline{
		maxWidth:   opts.MaxWidth,
		quality:    opts.Quality,
		scale:      opts.RenderScale,
		rasterizer: opts.Rasterizer,
	}
	if p.maxWidth <= 0 {
		p.maxWidth = DefaultMaxWidth
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = DefaultQuality
	}
	if p.scale <= 0 {
		p.scale = converters.DefaultRenderScale
	}
	return p
}

func (p *Pipeline) MaxWidth() int { return p.maxWidth }
func (p *Pipeline) Quality() int  { return p.quality }

// Derive produces a preview from data. It performs no storage I/O; every
// failure comes back as a *failure.Error.
func (p *Pipeline) Derive(ctx context.Context, data []byte, declared string) (*Preview, error) {
	start := time.Now()

	kind, err := Classify(data, declared)
	if err != nil {
		return nil, err
	}

	gen, err := GetGenerator(kind, p.rasterizer, p.scale)
	if err != nil {
		return nil, err
	}

	src, err := gen.Generate(ctx, data)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	width, height, err := ComputeTargetSize(b.Dx(), b.Dy(), p.maxWidth)
	if err != nil {
		return nil, err
	}

	resized := src
	if width != b.Dx() || height != b.Dy() {
		resized = imaging.Resize(src, width, height, imaging.Lanczos)
	}

	out, err := Encode(resized, p.quality)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Data:         out,
		MimeType:     schema.PreviewMimeType,
		Width:        width,
		Height:       height,
		SourceWidth:  b.Dx(),
		SourceHeight: b.Dy(),
		Kind:         kind,
		Generator:    gen.Name(),
		Quality:      p.quality,
		Elapsed:      time.Since(start),
	}, nil
}

var sniffedRaster = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Classify resolves the declared type to a media kind. The declared type
// decides; the sniffed content type can only veto it when it names the other
// supported kind.
func Classify(data []byte, declared string) (schema.MediaKind, error) {
	const op = "classify"

	kind := schema.ParseMediaKind(declared)
	if !kind.Supported() {
		return kind, failure.Errorf(failure.InvalidInput, op, "unsupported file type: %q", declared)
	}
	if len(data) == 0 {
		return kind, failure.Errorf(failure.InvalidInput, op, "empty source")
	}

	detected := mimetype.Detect(data)
	switch {
	case kind == schema.KindRaster && detected.Is("application/pdf"):
		return kind, failure.Errorf(failure.InvalidInput, op, "declared %q but content is a PDF", declared)
	case kind == schema.KindPaginated && slices.ContainsFunc(sniffedRaster, detected.Is):
		return kind, failure.Errorf(failure.InvalidInput, op, "declared %q but content is %s", declared, detected.String())
	}
	return kind, nil
}
