// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/drawing-thumbnailer/internal/app"
	"github.com/tendant/drawing-thumbnailer/internal/bus"
	"github.com/tendant/drawing-thumbnailer/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fatal(logger, "load config", err)
	}
	if cfg.NATSURL == "" {
		fatal(logger, "load config", errNoNATS)
	}
	logger.Info("worker starting", "nats_url", cfg.NATSURL, "subject", cfg.UploadedSubject, "queue", cfg.WorkerQueue, "result_subject", cfg.DoneSubject)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "build service", err)
	}
	defer a.Close()

	w := &worker{
		processor: a.Service,
		events:    a.Bus.Events(bus.TypeThumbnailDone),
		subject:   cfg.DoneSubject,
		logger:    logger,
	}
	_, err = a.Bus.QueueSubscribeJSON(cfg.UploadedSubject, cfg.WorkerQueue, cfg.RequestTimeout, w.handle)
	if err != nil {
		fatal(logger, "subscribe worker", err, "subject", cfg.UploadedSubject, "queue", cfg.WorkerQueue)
	}
	logger.Info("listening for uploads", "subject", cfg.UploadedSubject, "queue", cfg.WorkerQueue)

	<-ctx.Done()
	logger.Info("worker stopping")
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
