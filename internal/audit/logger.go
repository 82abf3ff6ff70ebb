package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/types"
)

// Audit events are written one JSON document per line. stdout is left to command output.
var Output io.Writer = os.Stderr

type Context struct {
	RunID string
	JobID string
}

func (c Context) message(evt EventType, disposition Disposition) Message {
	return Message{
		RunID:         c.RunID,
		JobID:         c.JobID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		Disposition:   disposition,
		Type:          evt,
		Timestamp:     types.NewUnixMilli(time.Now()),
	}
}

func dispForStatus(status types.JobStatus) Disposition {
	switch status {
	case types.JobStatusCompleted:
		return DispositionGood
	case types.JobStatusFailed, types.JobStatusStopped:
		return DispositionBad
	default:
		return DispositionNeutral
	}
}

func emit(event any, evt EventType, fields ...any) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error(
			"could not serialize audit event",
			append([]any{"event_type", evt, "error", err}, fields...)...,
		)
		return
	}

	fmt.Fprintln(Output, string(evtStr))
}

func LogJobSubmitted(c Context, spec types.JobSpec, handle types.JobHandle) {
	event := JobSubmitted{}
	c.JobID = handle.ID
	event.Message = c.message(EvtJobSubmitted, DispositionNeutral)

	event.Event.JobName = spec.JobName
	event.Event.ModelID = spec.ModelID
	event.Event.InputLocation = spec.InputLocation
	event.Event.OutputLocation = spec.OutputLocation
	event.Event.Identifier = handle.Identifier

	emit(event, EvtJobSubmitted, "job_name", spec.JobName)
}

func LogJobFinished(c Context, outcome types.JobOutcome) {
	event := JobFinished{}
	event.Message = c.message(EvtJobFinished, dispForStatus(outcome.Status))

	event.Event.Status = outcome.Status
	event.Event.OutputLocation = outcome.OutputLocation
	event.Event.FailureMessage = outcome.FailureMessage

	emit(event, EvtJobFinished, "status", outcome.Status)
}

// Runs scored on no pairs are reported with a bad disposition
func LogRunScored(
	c Context,
	report types.MetricReport,
	matched, missing, unmatched, duplicates int,
) {
	disposition := DispositionGood
	if report.NumSamples == 0 || matched == 0 {
		disposition = DispositionBad
	}

	event := RunScored{}
	event.Message = c.message(EvtRunScored, disposition)

	event.Event.Report = report
	event.Event.Matched = matched
	event.Event.Missing = missing
	event.Event.Unmatched = unmatched
	event.Event.Duplicates = duplicates

	emit(event, EvtRunScored, "num_samples", report.NumSamples)
}

func LogFileArchived(
	c Context,
	bucketName string,
	objectName string,
	fileArchived types.ArchivedFile,
	sha256 string,
) {
	event := FileArchived{}
	event.Message = c.message(EvtFileArchived, DispositionNeutral)

	event.Event.BucketName = bucketName
	event.Event.ObjectName = objectName
	event.Event.FileArchived = fileArchived
	event.Event.SHA256 = sha256

	emit(event, EvtFileArchived, "bucketName", bucketName, "objectName", objectName)
}
