package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/summarybench/batcheval/internal/archive"
	"github.com/summarybench/batcheval/internal/audit"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/results"
	"github.com/summarybench/batcheval/internal/types"
)

func (o *Orchestrator) startRun(ctx context.Context, handle types.JobHandle, jobName, modelID string) run {
	r := run{id: uuid.New()}

	if o.options.Store != nil {
		id, err := o.options.Store.Start(ctx, handle, jobName, modelID)
		if err != nil {
			logger.Logger.ErrorContext(ctx, "failed to record run", "job_id", handle.ID, "error", err)
		} else {
			r.id = id
			r.stored = true
		}
	}

	r.audit.RunID = r.id.String()
	r.audit.JobID = handle.ID
	return r
}

func (o *Orchestrator) finishRun(ctx context.Context, r run, outcome types.JobOutcome) {
	audit.LogJobFinished(r.audit, outcome)

	if !r.stored {
		return
	}

	if err := o.options.Store.Finish(ctx, r.id, outcome); err != nil {
		logger.Logger.ErrorContext(ctx, "failed to record run outcome", "run_id", r.id, "error", err)
	}
}

func (o *Orchestrator) recordScores(
	ctx context.Context,
	r run,
	report types.MetricReport,
	manifest *types.JobManifest,
) {
	if !r.stored {
		return
	}

	if err := o.options.Store.RecordScores(ctx, r.id, report, manifest); err != nil {
		logger.Logger.ErrorContext(ctx, "failed to record run scores", "run_id", r.id, "error", err)
	}
}

func (o *Orchestrator) archiveArtifacts(ctx context.Context, r run, artifacts results.Artifacts, manifestPath string) {
	if o.options.Archiver == nil {
		return
	}

	files := []*archive.FileMetadata{
		{LocalFilePath: &artifacts.Predictions, ArchivedFile: types.FilePredictions},
		{LocalFilePath: &artifacts.Metrics, ArchivedFile: types.FileMetrics},
	}
	if manifestPath != "" {
		files = append(files, &archive.FileMetadata{LocalFilePath: &manifestPath, ArchivedFile: types.FileManifest})
	}

	for _, f := range files {
		location, err := o.options.Archiver.ArchiveFile(ctx, r.audit, f)
		if err != nil {
			logger.Logger.ErrorContext(ctx, "failed to archive file",
				"file", *f.LocalFilePath,
				"error", err,
			)
			continue
		}
		logger.Logger.InfoContext(ctx, "archived file", "file", *f.LocalFilePath, "location", location)
	}
}

func (o *Orchestrator) notifyCompleted(ctx context.Context, r run, report types.MetricReport) {
	o.notify(ctx, types.NewRunCompletedMsg(r.id.String(), r.audit.JobID, report, o.now()))
}

func (o *Orchestrator) notifyFailed(ctx context.Context, r run, status types.JobStatus, err error) {
	o.notify(ctx, types.NewRunFailedMsg(r.id.String(), r.audit.JobID, status, err, o.now()))
}

func (o *Orchestrator) notify(ctx context.Context, msg types.RunMsg) {
	if o.options.Queuer == nil {
		return
	}

	if err := o.options.Queuer.Enqueue(ctx, msg); err != nil {
		logger.Logger.ErrorContext(ctx, "failed to publish run notification",
			"run_id", msg.RunID,
			"msg_type", msg.MsgType,
			"error", err,
		)
	}
}
