package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"time"

	"github.com/tendant/drawing-thumbnailer/internal/img"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Store is the subset of RedisCache the Deriver needs.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e *Entry) error
}

// Deriver serves previews from the cache and falls through to next on a
// miss. Cache errors are logged; they never fail a derivation.
type Deriver struct {
	next    img.Deriver
	cache   Store
	variant string
	logger  *slog.Logger
}

// NewDeriver caches previews of next. variant separates entries produced
// with different width or quality settings.
func NewDeriver(next img.Deriver, cache Store, maxWidth, quality int, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{
		next:    next,
		cache:   cache,
		variant: fmt.Sprintf("w%d:q%d", maxWidth, quality),
		logger:  logger,
	}
}

// Key is the cache key for data declared as kind.
func (d *Deriver) Key(data []byte, kind schema.MediaKind) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ":" + string(kind) + ":" + d.variant
}

func (d *Deriver) Derive(ctx context.Context, data []byte, declared string) (*img.Preview, error) {
	kind := schema.ParseMediaKind(declared)
	if !kind.Supported() || len(data) == 0 {
		return d.next.Derive(ctx, data, declared)
	}

	start := time.Now()
	key := d.Key(data, kind)

	entry, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("preview cache lookup failed", "err", err)
	}
	if entry != nil {
		if p, ok := d.fromEntry(entry, kind, start); ok {
			d.logger.Debug("preview cache hit", "kind", kind, "size", len(entry.Data))
			return p, nil
		}
	}

	p, err := d.next.Derive(ctx, data, declared)
	if err != nil {
		return nil, err
	}

	if err := d.cache.Set(ctx, key, &Entry{
		Data:         p.Data,
		SourceWidth:  p.SourceWidth,
		SourceHeight: p.SourceHeight,
		Generator:    p.Generator,
	}); err != nil {
		d.logger.Warn("preview cache store failed", "err", err)
	}
	return p, nil
}

func (d *Deriver) fromEntry(e *Entry, kind schema.MediaKind, start time.Time) (*img.Preview, bool) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(e.Data))
	if err != nil || format != "jpeg" {
		d.logger.Warn("discarding unreadable cached preview", "err", err, "format", format)
		return nil, false
	}
	return &img.Preview{
		Data:         e.Data,
		MimeType:     schema.PreviewMimeType,
		Width:        cfg.Width,
		Height:       cfg.Height,
		SourceWidth:  e.SourceWidth,
		SourceHeight: e.SourceHeight,
		Kind:         kind,
		Generator:    e.Generator + "+cache",
		Elapsed:      time.Since(start),
	}, true
}
