package process

import (
	"errors"
	"testing"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

func TestNewJobCapturesDrawing(t *testing.T) {
	job := NewJob("drawing-1")

	if job.DrawingID != "drawing-1" || job.ID == "" {
		t.Fatalf("unexpected job identity: %+v", job)
	}
	if job.Status != JobStatusPending {
		t.Fatalf("new job status = %v", job.Status)
	}
}

func TestSuccessfulLifecycle(t *testing.T) {
	job := NewJob("drawing-1")
	job.Advance(JobStatusFetching)
	job.Advance(JobStatusDeriving)
	job.Advance(JobStatusAssociating)
	MarkSucceeded(job)

	want := []schema.ProcessingStage{schema.StageValidation, schema.StageProcessing, schema.StageUpload, schema.StageCompleted}
	if len(job.Lifecycle) != len(want) {
		t.Fatalf("lifecycle = %+v", job.Lifecycle)
	}
	for i, stage := range want {
		if job.Lifecycle[i].Stage != stage {
			t.Errorf("stage %d = %s, want %s", i, job.Lifecycle[i].Stage, stage)
		}
	}
	last := job.Lifecycle[len(job.Lifecycle)-1]
	if last.ProcessingEnd == 0 || last.ProcessingStart == 0 {
		t.Errorf("terminal event missing timing: %+v", last)
	}

	done := job.Done("thumbnails/drawing-1.jpg", "", nil)
	if done.Error != "" || done.FailureType != "" {
		t.Errorf("unexpected error in done event: %+v", done)
	}
}

func TestMarkFailedSetsStatusAndError(t *testing.T) {
	job := NewJob("drawing-2")
	MarkFailed(job, failure.New(failure.RasterizationError, "rasterize", errors.New("boom")))

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error == "" || job.ErrorKind != failure.RasterizationError {
		t.Fatalf("job error not recorded: %+v", job)
	}

	done := job.Done("", "", nil)
	if done.FailureType != schema.FailureTypePermanent || done.ErrorKind != "rasterization_error" {
		t.Errorf("done = %+v", done)
	}
}

func TestMarkFailedDoesNotOverwriteErrorWhenNil(t *testing.T) {
	job := NewJob("drawing-3")
	MarkFailed(job, nil)

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error != "" {
		t.Fatalf("expected empty error string, got %q", job.Error)
	}
}

func TestMarkSkipped(t *testing.T) {
	job := NewJob("drawing-4")
	MarkSkipped(job, failure.Errorf(failure.Unsupported, "classify", "xlsx"))

	if job.Status != JobStatusSkipped || !job.Terminal() {
		t.Fatalf("status = %v", job.Status)
	}
	if got := job.Lifecycle[0].FailureType; got != schema.FailureTypeValidation {
		t.Errorf("failure type = %s", got)
	}
}
