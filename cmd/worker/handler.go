package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/drawing-thumbnailer/internal/bus"
	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/process"
	"github.com/tendant/drawing-thumbnailer/internal/thumbnail"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

var errNoNATS = errors.New("NATS_URL is required for the worker")

type processor interface {
	Regenerate(ctx context.Context, drawingID string) (*thumbnail.Result, error)
}

type publisher interface {
	PublishJSON(subject string, v any) error
}

// worker turns upload events into previews and reports each outcome.
type worker struct {
	processor processor
	events    publisher
	subject   string
	logger    *slog.Logger
}

func (w *worker) handle(ctx context.Context, data []byte) {
	var evt schema.DrawingUploaded
	if err := bus.DecodeJSON(data, &evt); err != nil {
		w.logger.Warn("discarding malformed upload event", "err", err)
		return
	}
	logger := w.logger.With("drawing_id", evt.DrawingID)
	if evt.DrawingID == "" {
		logger.Warn("upload event without drawing id")
		return
	}
	logger.Info("received upload", "file_name", evt.FileName, "storage_key", evt.StorageKey)

	res, err := w.processor.Regenerate(ctx, evt.DrawingID)
	done := w.outcome(evt.DrawingID, res, err)

	switch {
	case err == nil:
		logger.Info("completed job", "job_id", done.JobID, "preview_key", done.PreviewKey, "processing_time_ms", done.ProcessingTimeMs)
	case failure.Is(err, failure.Unsupported):
		logger.Info("skipped job", "job_id", done.JobID, "reason", err)
	default:
		logger.Error("job failed", "job_id", done.JobID, "kind", failure.KindOf(err), "failure_type", done.FailureType, "err", err)
	}

	if err := w.events.PublishJSON(w.subject, done); err != nil {
		logger.Error("publish result failed", "subject", w.subject, "err", err)
	}
}

// outcome builds the completion event. Regenerate returns no result when the
// drawing could not be loaded, so a failed job is synthesized for it.
func (w *worker) outcome(drawingID string, res *thumbnail.Result, err error) schema.ThumbnailDone {
	if res != nil {
		return res.Done()
	}
	job := process.NewJob(drawingID)
	process.MarkFailed(job, err)
	return job.Done("", "", nil)
}
