// internal/process/adapter.go
package process

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// JobStatus is where one drawing is in Fetching -> Deriving -> Associating
// -> (Succeeded | Skipped | Failed).
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusFetching    JobStatus = "fetching"
	JobStatusDeriving    JobStatus = "deriving"
	JobStatusAssociating JobStatus = "associating"
	JobStatusSucceeded   JobStatus = "succeeded"
	JobStatusSkipped     JobStatus = "skipped"
	JobStatusFailed      JobStatus = "failed"
)

var stageFor = map[JobStatus]schema.ProcessingStage{
	JobStatusFetching:    schema.StageValidation,
	JobStatusDeriving:    schema.StageProcessing,
	JobStatusAssociating: schema.StageUpload,
	JobStatusSucceeded:   schema.StageCompleted,
	JobStatusSkipped:     schema.StageSkipped,
	JobStatusFailed:      schema.StageFailed,
}

// Job tracks one preview derivation for auditing and events.
type Job struct {
	ID        string
	DrawingID string
	Status    JobStatus
	Error     string
	ErrorKind failure.Kind
	StartedAt time.Time
	EndedAt   time.Time
	Lifecycle []schema.ThumbnailLifecycleEvent
}

func NewJob(drawingID string) *Job {
	return &Job{
		ID:        uuid.NewString(),
		DrawingID: drawingID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
}

// Advance moves the job to status and records the lifecycle event.
func (j *Job) Advance(status JobStatus) {
	j.transition(status, nil)
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusSkipped || j.Status == JobStatusFailed
}

func MarkSucceeded(j *Job) { j.transition(JobStatusSucceeded, nil) }

// MarkSkipped records why the drawing has no preview without counting it
// as a failure.
func MarkSkipped(j *Job, err error) { j.transition(JobStatusSkipped, err) }

func MarkFailed(j *Job, err error) { j.transition(JobStatusFailed, err) }

func (j *Job) transition(status JobStatus, err error) {
	j.Status = status
	now := time.Now()

	event := schema.ThumbnailLifecycleEvent{
		JobID:      j.ID,
		DrawingID:  j.DrawingID,
		Stage:      stageFor[status],
		HappenedAt: now.Unix(),
	}
	if status == JobStatusDeriving {
		event.ProcessingStart = j.StartedAt.UnixMilli()
	}
	if j.Terminal() {
		j.EndedAt = now
		event.ProcessingStart = j.StartedAt.UnixMilli()
		event.ProcessingEnd = now.UnixMilli()
	}
	if err != nil {
		j.Error = err.Error()
		j.ErrorKind = failure.KindOf(err)
		event.Error = j.Error
		event.FailureType = j.ErrorKind.FailureType()
	}
	j.Lifecycle = append(j.Lifecycle, event)
}

// Duration is the time from creation to the terminal state, or to now.
func (j *Job) Duration() time.Duration {
	if j.EndedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.EndedAt.Sub(j.StartedAt)
}

// Done builds the completion event. derivation may be nil.
func (j *Job) Done(previewKey, previewURL string, derivation *schema.DerivationParams) schema.ThumbnailDone {
	done := schema.ThumbnailDone{
		JobID:            j.ID,
		DrawingID:        j.DrawingID,
		PreviewKey:       previewKey,
		PreviewURL:       previewURL,
		Derivation:       derivation,
		ProcessingTimeMs: j.Duration().Milliseconds(),
		Lifecycle:        j.Lifecycle,
		HappenedAt:       time.Now().Unix(),
	}
	if j.Error != "" {
		done.Error = j.Error
		done.ErrorKind = string(j.ErrorKind)
		done.FailureType = j.ErrorKind.FailureType()
	}
	return done
}
