// Package backfill fills in previews for drawings that have none.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/store"
	"github.com/tendant/drawing-thumbnailer/internal/thumbnail"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

const DefaultDelay = 500 * time.Millisecond

type Lister interface {
	ListMissingPreviews(ctx context.Context) ([]*store.SourceDocument, error)
}

type Processor interface {
	Process(ctx context.Context, doc *store.SourceDocument) (*thumbnail.Result, error)
}

// Driver walks every drawing without a preview, one at a time.
type Driver struct {
	lister    Lister
	processor Processor
	delay     time.Duration
	logger    *slog.Logger
}

func NewDriver(lister Lister, processor Processor, delay time.Duration, logger *slog.Logger) *Driver {
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{lister: lister, processor: processor, delay: delay, logger: logger}
}

// Run is the tally of one pass. It lives only as long as the caller keeps it.
type Run struct {
	ID         string
	Total      int
	Succeeded  int
	Skipped    int
	Failed     []schema.BackfillFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Run) Attempted() int { return r.Succeeded + r.Skipped + len(r.Failed) }

func (r *Run) Summary() schema.BackfillSummary {
	return schema.BackfillSummary{
		RunID:      r.ID,
		Total:      r.Total,
		Succeeded:  r.Succeeded,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt.Unix(),
		FinishedAt: r.FinishedAt.Unix(),
	}
}

// Run lists the drawings and processes each in order. A failed item is
// recorded and the pass moves on; the returned error is non-nil only when
// listing fails or ctx ends before every item was attempted.
func (d *Driver) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := d.logger.With("run_id", run.ID)

	docs, err := d.lister.ListMissingPreviews(ctx)
	if err != nil {
		run.FinishedAt = time.Now()
		return run, fmt.Errorf("list drawings without preview: %w", err)
	}
	run.Total = len(docs)
	logger.Info("backfill starting", "drawings", run.Total)

	for i, doc := range docs {
		if i > 0 && d.delay > 0 {
			if err := sleep(ctx, d.delay); err != nil {
				run.FinishedAt = time.Now()
				return run, err
			}
		} else if err := ctx.Err(); err != nil {
			run.FinishedAt = time.Now()
			return run, err
		}

		progress := fmt.Sprintf("[%d/%d]", i+1, run.Total)
		_, err := d.processor.Process(ctx, doc)
		switch {
		case err == nil:
			run.Succeeded++
			logger.Info(progress+" thumbnail generated", "drawing_id", doc.ID, "file_name", doc.FileName)
		case failure.Is(err, failure.Unsupported):
			run.Skipped++
			logger.Info(progress+" skipped", "drawing_id", doc.ID, "file_name", doc.FileName, "file_type", doc.FileType)
		default:
			run.Failed = append(run.Failed, schema.BackfillFailure{
				DrawingID: doc.ID,
				FileName:  doc.FileName,
				ErrorKind: string(failure.KindOf(err)),
				Message:   err.Error(),
			})
			logger.Warn(progress+" failed", "drawing_id", doc.ID, "file_name", doc.FileName, "err", err)
		}
	}

	run.FinishedAt = time.Now()
	logger.Info("backfill complete",
		"total", run.Total,
		"succeeded", run.Succeeded,
		"skipped", run.Skipped,
		"failed", len(run.Failed),
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
	return run, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
