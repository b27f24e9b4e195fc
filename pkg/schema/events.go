// pkg/schema/events.go
package schema

// DrawingUploaded is published after a drawing record has been created and
// its original bytes are in storage.
type DrawingUploaded struct {
	DrawingID  string `json:"drawing_id"`
	FileName   string `json:"file_name,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	HappenedAt int64  `json:"happened_at"`
}

type ProcessingStage string

const (
	StageValidation ProcessingStage = "validation"
	StageProcessing ProcessingStage = "processing"
	StageUpload     ProcessingStage = "upload"
	StageCompleted  ProcessingStage = "completed"
	StageSkipped    ProcessingStage = "skipped"
	StageFailed     ProcessingStage = "failed"
)

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

type DerivationParams struct {
	SourceWidth    int    `json:"source_width"`
	SourceHeight   int    `json:"source_height"`
	TargetWidth    int    `json:"target_width"`
	TargetHeight   int    `json:"target_height"`
	Algorithm      string `json:"algorithm"`
	Quality        int    `json:"quality,omitempty"`
	ProcessingTime int64  `json:"processing_time_ms"`
	GeneratedAt    int64  `json:"generated_at"`
}

type ThumbnailLifecycleEvent struct {
	JobID           string          `json:"job_id"`
	DrawingID       string          `json:"drawing_id"`
	Stage           ProcessingStage `json:"stage"`
	ProcessingStart int64           `json:"processing_start,omitempty"`
	ProcessingEnd   int64           `json:"processing_end,omitempty"`
	Error           string          `json:"error,omitempty"`
	FailureType     FailureType     `json:"failure_type,omitempty"`
	HappenedAt      int64           `json:"happened_at"`
}

// ThumbnailDone reports the outcome of one preview derivation.
type ThumbnailDone struct {
	JobID            string                    `json:"job_id"`
	DrawingID        string                    `json:"drawing_id"`
	PreviewKey       string                    `json:"preview_key,omitempty"`
	PreviewURL       string                    `json:"preview_url,omitempty"`
	Derivation       *DerivationParams         `json:"derivation,omitempty"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
	Lifecycle        []ThumbnailLifecycleEvent `json:"lifecycle,omitempty"`
	Error            string                    `json:"error,omitempty"`
	ErrorKind        string                    `json:"error_kind,omitempty"`
	FailureType      FailureType               `json:"failure_type,omitempty"`
	HappenedAt       int64                     `json:"happened_at"`
}

// BackfillFailure names one drawing the backfill could not preview.
type BackfillFailure struct {
	DrawingID string `json:"drawing_id"`
	FileName  string `json:"file_name,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message"`
}

// BackfillSummary is the end-of-run tally.
type BackfillSummary struct {
	RunID      string            `json:"run_id"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Skipped    int               `json:"skipped"`
	Failed     []BackfillFailure `json:"failed,omitempty"`
	StartedAt  int64             `json:"started_at"`
	FinishedAt int64             `json:"finished_at"`
}
