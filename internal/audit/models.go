package audit

import (
	"github.com/summarybench/batcheval/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtJobSubmitted EventType = "job_submitted"
	EvtJobFinished  EventType = "job_finished"
	EvtRunScored    EventType = "run_scored"
	EvtFileArchived EventType = "file_archived"
)

type Message struct {
	RunID         string      `json:"run_id"      validate:"required"`
	JobID         string      `json:"job_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type JobSubmittedEvent struct {
	JobName        string `json:"job_name"        validate:"required"`
	ModelID        string `json:"model_id"        validate:"required"`
	InputLocation  string `json:"input_location"  validate:"required"`
	OutputLocation string `json:"output_location" validate:"required"`
	Identifier     string `json:"identifier"      validate:"required"`
}

type JobSubmitted struct {
	Event JobSubmittedEvent `json:"event" validate:"required"`
	Message
}

type JobFinishedEvent struct {
	Status         types.JobStatus `json:"status"          validate:"required"`
	OutputLocation string          `json:"output_location"`
	FailureMessage string          `json:"failure_message"`
}

type JobFinished struct {
	Event JobFinishedEvent `json:"event" validate:"required"`
	Message
}

type RunScoredEvent struct {
	Report     types.MetricReport `json:"report"     validate:"required"`
	Matched    int                `json:"matched"`
	Missing    int                `json:"missing"`
	Unmatched  int                `json:"unmatched"`
	Duplicates int                `json:"duplicates"`
}

type RunScored struct {
	Event RunScoredEvent `json:"event" validate:"required"`
	Message
}

type FileArchivedEvent struct {
	BucketName   string             `json:"bucket_name"   validate:"required"`
	ObjectName   string             `json:"object_name"   validate:"required"`
	FileArchived types.ArchivedFile `json:"file_archived" validate:"required"`
	SHA256       string             `json:"sha256"        validate:"required"`
}

type FileArchived struct {
	Event FileArchivedEvent `json:"event" validate:"required"`
	Message
}
