// cmd/backfill/main.go fills in previews for every drawing that has none.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/drawing-thumbnailer/internal/app"
	"github.com/tendant/drawing-thumbnailer/internal/backfill"
	"github.com/tendant/drawing-thumbnailer/internal/bus"
	"github.com/tendant/drawing-thumbnailer/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := runBackfill(ctx, logger)
	stop()
	os.Exit(code)
}

// runBackfill returns the process exit code so deferred cleanup runs before
// main exits.
func runBackfill(ctx context.Context, logger *slog.Logger) int {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireBackend()
	}
	if err != nil {
		logger.Error("load config", "err", err)
		return 1
	}

	// The summary is published best-effort on a connection of our own, so an
	// unreachable NATS server does not stop the run.
	natsURL := cfg.NATSURL
	cfg.NATSURL = ""

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build service", "err", err)
		return 1
	}
	defer a.Close()

	run, err := backfill.NewDriver(a.Backend.Docs, a.Service, cfg.BackfillDelay, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("backfill", "err", err)
		return 1
	}

	if natsURL != "" && run != nil {
		publishSummary(natsURL, cfg.DoneSubject+".backfill", run, logger)
	}
	if err != nil {
		if run != nil {
			logger.Warn("backfill interrupted", "attempted", run.Attempted(), "total", run.Total)
		}
		return 1
	}
	return 0
}

func publishSummary(natsURL, subject string, run *backfill.Run, logger *slog.Logger) {
	nc, err := bus.Connect(natsURL)
	if err != nil {
		logger.Warn("skip summary publish, NATS unreachable", "nats_url", natsURL, "err", err)
		return
	}
	defer nc.Close()
	if err := nc.PublishEvent(subject, bus.TypeBackfillDone, run.Summary()); err != nil {
		logger.Warn("publish backfill summary failed", "subject", subject, "err", err)
		return
	}
	logger.Info("published backfill summary", "subject", subject, "run_id", run.ID)
}
