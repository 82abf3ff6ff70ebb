package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/jobs"
	mockjobs "github.com/summarybench/batcheval/internal/jobs/mock"
	"github.com/summarybench/batcheval/internal/types"
)

var handle = types.NewJobHandle("arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/j45wouwjfza7")

func quickRetries() retry.Backoff {
	b := retry.NewConstant(time.Millisecond)
	b = retry.WithMaxRetries(2, b)
	return b
}

// records requested sleeps instead of sleeping
type sleeps struct {
	calls []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func TestWaitUntilTerminal(t *testing.T) {
	t.Run("PendingToCompleted", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)

		gomock.InOrder(
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{Status: types.JobStatusPending}, nil),
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{Status: types.JobStatusInProgress}, nil),
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{
					Status:         types.JobStatusCompleted,
					OutputLocation: "s3://bucket/out/j45wouwjfza7",
				}, nil),
		)

		s := &sleeps{}
		var observed []types.JobStatus
		poller := jobs.NewPollerBackoff(backend, quickRetries, s.sleep)

		outcome, err := poller.WaitUntilTerminal(ctx, handle, time.Minute, func(r types.StatusReport) {
			observed = append(observed, r.Status)
		})
		require.NoError(t, err, "failed to wait for job")

		assert.True(t, outcome.Succeeded())
		assert.Equal(t, "s3://bucket/out/j45wouwjfza7", outcome.OutputLocation)
		assert.Equal(t, []time.Duration{time.Minute, time.Minute}, s.calls)
		assert.Equal(t, []types.JobStatus{
			types.JobStatusPending,
			types.JobStatusInProgress,
			types.JobStatusCompleted,
		}, observed)
	})

	t.Run("AlreadyTerminal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{Status: types.JobStatusCompleted, OutputLocation: "s3://b/o"}, nil).
			Times(1)

		s := &sleeps{}
		_, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		require.NoError(t, err)
		assert.Empty(t, s.calls, "terminal on first poll should not sleep")
	})

	t.Run("Failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{
				Status:         types.JobStatusFailed,
				FailureMessage: "Insufficient permissions to read input",
			}, nil)

		s := &sleeps{}
		outcome, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		require.NoError(t, err, "a failed job is an outcome")

		assert.False(t, outcome.Succeeded())
		assert.Equal(t, types.JobStatusFailed, outcome.Status)
		assert.Equal(t, "Insufficient permissions to read input", outcome.FailureMessage)
	})

	t.Run("Stopped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{Status: types.JobStatusStopped}, nil)

		s := &sleeps{}
		outcome, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusStopped, outcome.Status)
	})

	t.Run("CompletedWithoutLocation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{Status: types.JobStatusCompleted}, nil)

		s := &sleeps{}
		_, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, jobs.ErrMissingOutputLocation)

		var pollErr evalerrors.PollingError
		assert.ErrorAs(t, err, &pollErr)
	})

	t.Run("TransientErrorRetried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		gomock.InOrder(
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{}, errors.New("throttled")),
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{Status: types.JobStatusCompleted, OutputLocation: "s3://b/o"}, nil),
		)

		s := &sleeps{}
		outcome, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		require.NoError(t, err, "a single transient failure should be absorbed")
		assert.True(t, outcome.Succeeded())
		assert.Empty(t, s.calls, "retries do not consume a poll interval")
	})

	t.Run("PersistentError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{}, errors.New("expected error")).
			Times(3)

		s := &sleeps{}
		_, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)

		var pollErr evalerrors.PollingError
		require.ErrorAs(t, err, &pollErr)
		assert.Equal(t, handle.ID, pollErr.JobID)
	})

	t.Run("NotFoundNotRetried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{}, jobs.ErrJobNotFound).
			Times(1)

		s := &sleeps{}
		_, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, time.Second, nil)
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	})

	t.Run("CancelledWhileWaiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{Status: types.JobStatusInProgress}, nil).
			Times(1)

		poller := jobs.NewPollerBackoff(backend, quickRetries, func(ctx context.Context, d time.Duration) error {
			cancel()
			return jobs.Sleep(ctx, d)
		})

		start := time.Now()
		_, err := poller.WaitUntilTerminal(ctx, handle, time.Hour, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Minute, "cancellation should interrupt the wait")
	})

	t.Run("DeadlineBeforeTerminal", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		backend.EXPECT().GetJobStatus(gomock.Any(), handle).
			Return(types.StatusReport{Status: types.JobStatusInProgress}, nil).
			MinTimes(1)

		start := time.Now()
		_, err := jobs.NewPollerBackoff(backend, quickRetries, jobs.Sleep).
			WaitUntilTerminal(ctx, handle, time.Hour, nil)

		var pollingErr evalerrors.PollingError
		require.ErrorAs(t, err, &pollingErr)
		assert.Equal(t, handle.ID, pollingErr.JobID)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Minute, "the deadline should interrupt the wait")
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		backend := mockjobs.NewMockBackend(ctrl)
		gomock.InOrder(
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{Status: types.JobStatusPending}, nil),
			backend.EXPECT().GetJobStatus(gomock.Any(), handle).
				Return(types.StatusReport{Status: types.JobStatusStopped}, nil),
		)

		s := &sleeps{}
		_, err := jobs.NewPollerBackoff(backend, quickRetries, s.sleep).
			WaitUntilTerminal(context.Background(), handle, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{jobs.DefaultPollInterval}, s.calls)
	})
}

func TestSleep(t *testing.T) {
	require.NoError(t, jobs.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, jobs.Sleep(ctx, time.Hour), context.Canceled)
}

func TestNewJobName(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "batch-inference-20250314-090507", jobs.NewJobName("", now))
	assert.Equal(t, "dialogsum-20250314-090507", jobs.NewJobName("dialogsum", now))
}
