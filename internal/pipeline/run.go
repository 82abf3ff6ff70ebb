package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/summarybench/batcheval/internal/audit"
	"github.com/summarybench/batcheval/internal/correlate"
	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/parse"
	"github.com/summarybench/batcheval/internal/results"
	"github.com/summarybench/batcheval/internal/rouge"
	"github.com/summarybench/batcheval/internal/types"
)

// Submits the job, waits for it to finish and evaluates its outputs against refs.
//
// A job that ends failed or stopped returns an evalerrors.JobStatusError before anything is
// fetched. Cancelling ctx ends the wait but leaves the remote job running.
func (o *Orchestrator) Run(
	ctx context.Context,
	spec types.JobSpec,
	refs []types.ReferenceRecord,
) (Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Run", trace.WithAttributes(
		attribute.String("job.name", spec.JobName),
		attribute.String("model.id", spec.ModelID),
		attribute.Int("references", len(refs)),
	))
	defer span.End()

	handle, err := o.submitter.Submit(ctx, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit job")
		return Result{}, err
	}

	r := o.startRun(ctx, handle, spec.JobName, spec.ModelID)
	audit.LogJobSubmitted(r.audit, spec, handle)
	logger.Logger.InfoContext(ctx, "submitted job",
		"job_id", handle.ID,
		"identifier", handle.Identifier,
		"run_id", r.id,
	)

	outcome, err := o.poller.WaitUntilTerminal(ctx, handle, o.options.PollInterval,
		func(report types.StatusReport) {
			logger.Logger.InfoContext(ctx, "job status", "job_id", handle.ID, "status", report.Status)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed waiting for job")
		return Result{RunID: r.id, Handle: handle}, err
	}

	o.finishRun(ctx, r, outcome)

	if !outcome.Succeeded() {
		err = evalerrors.JobStatusError{
			JobID:   handle.ID,
			Status:  outcome.Status,
			Message: outcome.FailureMessage,
		}
		o.notifyFailed(ctx, r, outcome.Status, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "job did not complete")
		return Result{RunID: r.id, Handle: handle, Outcome: outcome}, err
	}

	res, err := o.evaluate(ctx, r, EvaluateRequest{
		Handle:         handle,
		JobName:        spec.JobName,
		ModelID:        spec.ModelID,
		OutputLocation: outcome.OutputLocation,
		References:     refs,
	})
	res.Outcome = outcome
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to evaluate job")
		return res, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "run finished")
	return res, nil
}

// Evaluates a job that already completed, without querying its backend
func (o *Orchestrator) Evaluate(ctx context.Context, req EvaluateRequest) (Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Evaluate", trace.WithAttributes(
		attribute.String("job.id", req.Handle.ID),
		attribute.String("output", req.OutputLocation),
	))
	defer span.End()

	if req.JobName == "" {
		req.JobName = req.Handle.ID
	}

	r := o.startRun(ctx, req.Handle, req.JobName, req.ModelID)
	outcome := types.JobOutcome{
		Status:         types.JobStatusCompleted,
		OutputLocation: req.OutputLocation,
	}
	o.finishRun(ctx, r, outcome)

	res, err := o.evaluate(ctx, r, req)
	res.Outcome = outcome
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to evaluate job")
		return res, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "evaluated job")
	return res, nil
}

// fetch -> parse -> correlate -> score -> persist, then the optional archive / record / notify
func (o *Orchestrator) evaluate(ctx context.Context, r run, req EvaluateRequest) (Result, error) {
	artifacts := results.Paths(o.options.ResultsDir, req.Handle.ID)
	res := Result{RunID: r.id, Handle: req.Handle, Artifacts: artifacts}
	log := logger.ForJob(req.Handle.ID)

	fail := func(err error) (Result, error) {
		o.notifyFailed(ctx, r, types.JobStatusCompleted, err)
		return res, err
	}

	files, err := o.fetcher.FetchAll(ctx, req.OutputLocation, artifacts.Dir)
	if err != nil {
		var fetchErr evalerrors.FetchError
		if !o.options.AllowPartial || !errors.As(err, &fetchErr) || len(fetchErr.Files) == 0 {
			return fail(err)
		}

		log.WarnContext(ctx, "continuing with partial results",
			"files", len(fetchErr.Files),
			"error", err,
		)
		files = fetchErr.Files
		res.Partial = true
	}

	manifestPath, resultFiles := parse.SplitManifest(files)
	if len(resultFiles) == 0 {
		return fail(ErrNoResults)
	}

	if manifestPath != "" {
		manifest, err := parse.ParseManifest(manifestPath)
		if err != nil {
			log.WarnContext(ctx, "ignoring unreadable job manifest",
				"file", manifestPath,
				"error", err,
			)
		} else {
			res.Manifest = &manifest
			log.InfoContext(ctx, "job manifest",
				"total", manifest.TotalRecordCount,
				"processed", manifest.ProcessedRecordCount,
				"succeeded", manifest.SuccessRecordCount,
				"errored", manifest.ErrorRecordCount,
			)
		}
	}

	predictions, err := parse.Parse(ctx, resultFiles)
	if err != nil {
		return fail(err)
	}

	pairs, stats := correlate.Match(predictions, req.References)
	res.Stats = stats
	log.InfoContext(ctx, "correlated predictions",
		"predictions", len(predictions),
		"matched", stats.Matched,
		"missing", stats.Missing,
		"unmatched", stats.Unmatched,
		"duplicates", stats.Duplicates,
	)

	scores, err := rouge.Score(pairs)
	if err != nil {
		var scoringErr evalerrors.ScoringError
		if !errors.As(err, &scoringErr) {
			return fail(err)
		}
		log.WarnContext(ctx, "scored an empty corpus", "error", err)
	}

	// the report is keyed by job id whichever way the job was started
	res.Report = types.NewMetricReport(req.Handle.ID, req.ModelID, len(pairs), scores)

	if err := results.WriteCorrelated(ctx, artifacts.Predictions, pairs); err != nil {
		return fail(err)
	}
	if err := results.WriteReport(ctx, artifacts.Metrics, res.Report); err != nil {
		return fail(err)
	}

	audit.LogRunScored(r.audit, res.Report, stats.Matched, stats.Missing, stats.Unmatched, stats.Duplicates)
	log.InfoContext(ctx, "scored job",
		"num_samples", res.Report.NumSamples,
		"rouge1", res.Report.Rouge1,
		"rouge2", res.Report.Rouge2,
		"rougeL", res.Report.RougeL,
		"predictions", artifacts.Predictions,
		"metrics", artifacts.Metrics,
	)

	o.archiveArtifacts(ctx, r, artifacts, manifestPath)
	o.recordScores(ctx, r, res.Report, res.Manifest)
	o.notifyCompleted(ctx, r, res.Report)

	return res, nil
}

// Bookkeeping for one run
type run struct {
	audit audit.Context
	id    uuid.UUID
	// id is a row in the run store
	stored bool
}
