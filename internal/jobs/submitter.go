package jobs

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/types"
	"github.com/summarybench/batcheval/internal/validator"
)

// Creates jobs on a backend. Submission is never retried.
type Submitter struct {
	backend  Backend
	validate validator.CustomValidator
}

func NewSubmitter(backend Backend) *Submitter {
	return &Submitter{
		backend:  backend,
		validate: validator.Create(),
	}
}

// An invalid spec is an evalerrors.SetupError and reaches no backend. Any backend failure that is
// not already a setup problem is returned as an evalerrors.SubmissionError.
func (s *Submitter) Submit(ctx context.Context, spec types.JobSpec) (types.JobHandle, error) {
	ctx, span := tracer.Start(ctx, "Submitter.Submit", trace.WithAttributes(
		attribute.String("job.name", spec.JobName),
		attribute.String("model.id", spec.ModelID),
		attribute.String("input", spec.InputLocation),
		attribute.String("output", spec.OutputLocation),
	))
	defer span.End()

	if err := s.validate.Validate(&spec); err != nil {
		err = evalerrors.SetupErrorWrap(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid job spec")
		return types.JobHandle{}, err
	}

	handle, err := s.backend.SubmitJob(ctx, spec)
	if err != nil {
		var setupErr evalerrors.SetupError
		if !errors.As(err, &setupErr) {
			err = evalerrors.SubmissionErrorWrap(spec.JobName, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit job")
		return types.JobHandle{}, err
	}

	if handle.ID == "" {
		err = evalerrors.SubmissionErrorWrap(
			spec.JobName,
			errors.New("backend returned an empty job identifier"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty job identifier")
		return types.JobHandle{}, err
	}

	logger.Logger.InfoContext(ctx, "submitted job",
		"job_name", spec.JobName,
		"job_id", handle.ID,
		"identifier", handle.Identifier,
		"model_id", spec.ModelID,
	)

	span.SetAttributes(attribute.String("job.id", handle.ID))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "submitted job")
	return handle, nil
}
