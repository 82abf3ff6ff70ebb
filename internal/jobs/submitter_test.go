package jobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/jobs"
	mockjobs "github.com/summarybench/batcheval/internal/jobs/mock"
	"github.com/summarybench/batcheval/internal/types"
)

func validSpec() types.JobSpec {
	return types.NewJobSpec(
		"batch-inference-20250314-090507",
		"meta.llama3-2-1b-instruct-v1:0",
		"s3://bucket/bedrock/data/validation.jsonl",
		"s3://bucket/bedrock/batch-outputs/",
		"arn:aws:iam::123456789012:role/BedrockBatch",
		nil,
	)
}

func TestSubmit(t *testing.T) {
	t.Run("NoError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		spec := validSpec()
		backend.EXPECT().SubmitJob(gomock.Any(), spec).Return(handle, nil).Times(1)

		h, err := jobs.NewSubmitter(backend).Submit(context.Background(), spec)
		require.NoError(t, err, "failed to submit")
		assert.Equal(t, "j45wouwjfza7", h.ID)
	})

	t.Run("InvalidSpec", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		spec := validSpec()
		spec.ModelID = ""

		_, err := jobs.NewSubmitter(backend).Submit(context.Background(), spec)
		var setupErr evalerrors.SetupError
		assert.ErrorAs(t, err, &setupErr, "missing model should fail before the backend")
	})

	t.Run("InputNotInObjectStorage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		spec := validSpec()
		spec.InputLocation = "data/validation.jsonl"

		_, err := jobs.NewSubmitter(backend).Submit(context.Background(), spec)
		var setupErr evalerrors.SetupError
		assert.ErrorAs(t, err, &setupErr)
	})

	t.Run("BackendRejects", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		spec := validSpec()
		backend.EXPECT().SubmitJob(gomock.Any(), spec).
			Return(types.JobHandle{}, errors.New("ServiceQuotaExceededException")).
			Times(1)

		_, err := jobs.NewSubmitter(backend).Submit(context.Background(), spec)

		var submissionErr evalerrors.SubmissionError
		require.ErrorAs(t, err, &submissionErr)
		assert.Equal(t, spec.JobName, submissionErr.JobName)
	})

	t.Run("BackendSetupProblem", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		spec := validSpec()
		backend.EXPECT().SubmitJob(gomock.Any(), spec).
			Return(types.JobHandle{}, evalerrors.SetupErrorWrap(jobs.ErrMissingRole))

		_, err := jobs.NewSubmitter(backend).Submit(context.Background(), spec)

		var submissionErr evalerrors.SubmissionError
		assert.NotErrorAs(t, err, &submissionErr)
		assert.ErrorIs(t, err, jobs.ErrMissingRole)
	})

	t.Run("EmptyIdentifier", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		backend.EXPECT().SubmitJob(gomock.Any(), gomock.Any()).Return(types.JobHandle{}, nil)

		_, err := jobs.NewSubmitter(backend).Submit(context.Background(), validSpec())
		var submissionErr evalerrors.SubmissionError
		assert.ErrorAs(t, err, &submissionErr)
	})
}
