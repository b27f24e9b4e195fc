// Package app assembles the thumbnail service from configuration. Every
// binary builds its dependencies through New.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tendant/drawing-thumbnailer/internal/api"
	"github.com/tendant/drawing-thumbnailer/internal/backend"
	"github.com/tendant/drawing-thumbnailer/internal/bus"
	"github.com/tendant/drawing-thumbnailer/internal/cache"
	"github.com/tendant/drawing-thumbnailer/internal/config"
	"github.com/tendant/drawing-thumbnailer/internal/converters"
	"github.com/tendant/drawing-thumbnailer/internal/img"
	"github.com/tendant/drawing-thumbnailer/internal/thumbnail"
	"github.com/tendant/drawing-thumbnailer/internal/upload"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Backend *backend.Backend
	Service *thumbnail.Service

	// Bus is nil unless NATS_URL is set.
	Bus *bus.Client

	cache *cache.RedisCache
}

// New opens the backend, the optional preview cache and the optional NATS
// connection, then builds the service on top of them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rasterizer, err := converters.New(cfg.Rasterizer)
	if err != nil {
		return nil, err
	}

	be, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.BackendKind, err)
	}
	a := &App{Config: cfg, Logger: logger, Backend: be}

	pipeline := img.NewPipeline(img.Options{
		MaxWidth:    cfg.MaxWidth,
		Quality:     cfg.Quality,
		RenderScale: cfg.RenderScale,
		Rasterizer:  rasterizer,
	})
	var deriver img.Deriver = pipeline
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.PreviewCacheTTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect preview cache: %w", err)
		}
		a.cache = rc
		deriver = cache.NewDeriver(pipeline, rc, pipeline.MaxWidth(), pipeline.Quality(), logger)
		logger.Info("preview cache enabled", "ttl", cfg.PreviewCacheTTL)
	}

	opts := thumbnail.Options{DeriveInline: cfg.DeriveInline, UploadedSubject: cfg.UploadedSubject}
	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		a.Bus = nc
		opts.Events = nc.Events(bus.TypeDrawingUploaded)
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	}

	assoc := upload.NewClient(be.Objects, be.Docs, upload.Options{Prefix: cfg.Prefix, Scheme: cfg.Scheme()})
	a.Service = thumbnail.NewService(deriver, assoc, be.Docs, logger, opts)

	logger.Info("thumbnail service ready",
		"backend", cfg.BackendKind,
		"rasterizer", rasterizer.Name(),
		"max_width", pipeline.MaxWidth(),
		"quality", pipeline.Quality(),
		"render_scale", cfg.RenderScale,
		"key_scheme", cfg.KeyScheme,
		"derive_inline", cfg.DeriveInline || a.Bus == nil,
	)
	return a, nil
}

// Router returns the HTTP surface over the service.
func (a *App) Router(serviceName string, jsonLogs bool) http.Handler {
	fetcher := api.NewURLFetcher(a.Config.RequestTimeout, a.Config.MaxUploadBytes)
	h := api.NewHandler(a.Service, fetcher, a.Logger, a.Config.MaxUploadBytes)
	return api.NewRouter(h, api.RouterOptions{
		ServiceName: serviceName,
		Timeout:     a.Config.RequestTimeout,
		JSONLogs:    jsonLogs,
	})
}

// Publish sends v as a CloudEvent when a bus is configured. Failures are
// logged only.
func (a *App) Publish(subject, eventType string, v any) {
	if a.Bus == nil {
		return
	}
	if err := a.Bus.PublishEvent(subject, eventType, v); err != nil {
		a.Logger.Warn("publish event failed", "subject", subject, "type", eventType, "err", err)
	}
}

func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	a.Backend.Close()
}
