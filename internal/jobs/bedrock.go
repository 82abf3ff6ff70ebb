package jobs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/storage"
	"github.com/summarybench/batcheval/internal/types"
)

// Ensure BedrockBackend implements Backend interface.
var _ Backend = (*BedrockBackend)(nil)

// Subset of *bedrock.Client used by BedrockBackend
type BedrockAPI interface {
	CreateModelInvocationJob(
		ctx context.Context,
		params *bedrock.CreateModelInvocationJobInput,
		optFns ...func(*bedrock.Options),
	) (*bedrock.CreateModelInvocationJobOutput, error)
	GetModelInvocationJob(
		ctx context.Context,
		params *bedrock.GetModelInvocationJobInput,
		optFns ...func(*bedrock.Options),
	) (*bedrock.GetModelInvocationJobOutput, error)
}

// Amazon Bedrock model invocation jobs
type BedrockBackend struct {
	client BedrockAPI
}

func NewBedrockBackend(cfg aws.Config) *BedrockBackend {
	return NewBedrockBackendFromClient(bedrock.NewFromConfig(cfg))
}

func NewBedrockBackendFromClient(client BedrockAPI) *BedrockBackend {
	return &BedrockBackend{
		client: client,
	}
}

func (b *BedrockBackend) SubmitJob(ctx context.Context, spec types.JobSpec) (types.JobHandle, error) {
	ctx, span := tracer.Start(ctx, "BedrockBackend.SubmitJob", trace.WithAttributes(
		attribute.String("job.name", spec.JobName),
	))
	defer span.End()

	if spec.ExecutionRole == "" {
		err := evalerrors.SetupErrorWrap(ErrMissingRole)
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing role")
		return types.JobHandle{}, err
	}

	input := &bedrock.CreateModelInvocationJobInput{
		JobName: aws.String(spec.JobName),
		ModelId: aws.String(spec.ModelID),
		RoleArn: aws.String(spec.ExecutionRole),
		InputDataConfig: &bedrocktypes.ModelInvocationJobInputDataConfigMemberS3InputDataConfig{
			Value: bedrocktypes.ModelInvocationJobS3InputDataConfig{
				S3Uri:         aws.String(spec.InputLocation),
				S3InputFormat: bedrocktypes.S3InputFormatJsonl,
			},
		},
		OutputDataConfig: &bedrocktypes.ModelInvocationJobOutputDataConfigMemberS3OutputDataConfig{
			Value: bedrocktypes.ModelInvocationJobS3OutputDataConfig{
				S3Uri: aws.String(spec.OutputLocation),
			},
		},
	}
	for _, k := range slices.Sorted(maps.Keys(spec.Tags)) {
		input.Tags = append(input.Tags, bedrocktypes.Tag{
			Key:   aws.String(k),
			Value: aws.String(spec.Tags[k]),
		})
	}

	out, err := b.client.CreateModelInvocationJob(ctx, input)
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create model invocation job")
		return types.JobHandle{}, err
	}

	if out.JobArn == nil {
		err = errors.New("create model invocation job returned no job arn")
		span.RecordError(err)
		span.SetStatus(codes.Error, "no job arn")
		return types.JobHandle{}, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created model invocation job")
	return types.NewJobHandle(*out.JobArn), nil
}

func (b *BedrockBackend) GetJobStatus(
	ctx context.Context,
	handle types.JobHandle,
) (types.StatusReport, error) {
	ctx, span := tracer.Start(ctx, "BedrockBackend.GetJobStatus", trace.WithAttributes(
		attribute.String("job.id", handle.ID),
	))
	defer span.End()

	out, err := b.client.GetModelInvocationJob(ctx, &bedrock.GetModelInvocationJobInput{
		JobIdentifier: aws.String(handle.Identifier),
	})
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get model invocation job")
		return types.StatusReport{}, err
	}

	status, err := mapBedrockStatus(out.Status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown status")
		return types.StatusReport{}, err
	}

	report := types.StatusReport{
		Status:         status,
		FailureMessage: aws.ToString(out.Message),
	}

	if status == types.JobStatusCompleted {
		// bedrock writes results under <configured output uri>/<job id>/
		if s3Out, ok := out.OutputDataConfig.(*bedrocktypes.ModelInvocationJobOutputDataConfigMemberS3OutputDataConfig); ok &&
			aws.ToString(s3Out.Value.S3Uri) != "" {
			loc, err := storage.ParseLocation(aws.ToString(s3Out.Value.S3Uri))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "invalid output location")
				return types.StatusReport{}, err
			}
			report.OutputLocation = loc.Join(handle.ID).String()
		}
	}

	span.SetAttributes(
		attribute.String("bedrock.status", string(out.Status)),
		attribute.String("status", status.String()),
	)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got model invocation job")
	return report, nil
}

func mapBedrockStatus(status bedrocktypes.ModelInvocationJobStatus) (types.JobStatus, error) {
	switch status {
	case bedrocktypes.ModelInvocationJobStatusSubmitted,
		bedrocktypes.ModelInvocationJobStatusValidating,
		bedrocktypes.ModelInvocationJobStatusScheduled:
		return types.JobStatusPending, nil
	case bedrocktypes.ModelInvocationJobStatusInProgress,
		bedrocktypes.ModelInvocationJobStatusStopping:
		return types.JobStatusInProgress, nil
	case bedrocktypes.ModelInvocationJobStatusCompleted,
		bedrocktypes.ModelInvocationJobStatusPartiallyCompleted:
		return types.JobStatusCompleted, nil
	case bedrocktypes.ModelInvocationJobStatusFailed,
		bedrocktypes.ModelInvocationJobStatusExpired:
		return types.JobStatusFailed, nil
	case bedrocktypes.ModelInvocationJobStatusStopped:
		return types.JobStatusStopped, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
}

// Marks errors that retrying cannot fix
func classify(err error) error {
	var denied *bedrocktypes.AccessDeniedException
	if errors.As(err, &denied) {
		return evalerrors.SetupErrorWrap(err)
	}

	var notFound *bedrocktypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", ErrJobNotFound, err)
	}

	return err
}
