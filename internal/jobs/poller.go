package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/types"
)

const (
	DefaultPollInterval = time.Minute
	DefaultQueryRetries = 3
)

var ErrMissingOutputLocation = errors.New("job completed without an output location")

// Waits between status queries. Must return early with the context error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Called with every observed status, terminal ones included
type StatusFunc func(report types.StatusReport)

// Polls a backend until a job reaches a terminal status
type Poller struct {
	backend Backend
	// backoff for retrying a single failed status query
	backoff func() retry.Backoff
	sleep   SleepFunc
}

func NewPoller(backend Backend, queryRetries uint64) *Poller {
	return NewPollerBackoff(backend, func() retry.Backoff {
		b := retry.NewExponential(time.Second * 2)
		b = retry.WithMaxRetries(queryRetries, b)
		return b
	}, Sleep)
}

func NewPollerBackoff(backend Backend, backoff func() retry.Backoff, sleep SleepFunc) *Poller {
	return &Poller{
		backend: backend,
		backoff: backoff,
		sleep:   sleep,
	}
}

func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Queries immediately, then once per `interval` until the status is terminal. Non-positive
// intervals use DefaultPollInterval.
//
// A failed or stopped job is returned as an outcome, not an error. Errors are
// evalerrors.PollingError: the query kept failing, the context ended, or the backend reported
// completion without an output location.
func (p *Poller) WaitUntilTerminal(
	ctx context.Context,
	handle types.JobHandle,
	interval time.Duration,
	onStatus StatusFunc,
) (types.JobOutcome, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, span := tracer.Start(ctx, "Poller.WaitUntilTerminal", trace.WithAttributes(
		attribute.String("job.id", handle.ID),
		attribute.String("interval", interval.String()),
	))
	defer span.End()

	polls := 0
	log := logger.ForJob(handle.ID)
	for {
		report, err := p.query(ctx, handle)
		if err != nil {
			err = evalerrors.PollingErrorWrap(handle.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to query job status")
			return types.JobOutcome{}, err
		}
		polls++

		log.DebugContext(ctx, "job status", "status", report.Status)
		if onStatus != nil {
			onStatus(report)
		}

		if report.Status.IsTerminal() {
			span.SetAttributes(
				attribute.Int("polls", polls),
				attribute.String("status", report.Status.String()),
			)

			if report.Status == types.JobStatusCompleted && report.OutputLocation == "" {
				err = evalerrors.PollingErrorWrap(handle.ID, ErrMissingOutputLocation)
				span.RecordError(err)
				span.SetStatus(codes.Error, "completed without output location")
				return types.JobOutcome{}, err
			}

			log.InfoContext(ctx, "job finished",
				"status", report.Status,
				"output_location", report.OutputLocation,
				"failure_message", report.FailureMessage,
			)
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "job reached terminal status")
			return types.JobOutcome{
				Status:         report.Status,
				OutputLocation: report.OutputLocation,
				FailureMessage: report.FailureMessage,
			}, nil
		}

		if err := p.sleep(ctx, interval); err != nil {
			err = evalerrors.PollingErrorWrap(handle.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "wait interrupted")
			return types.JobOutcome{}, err
		}
	}
}

// One status query, retried on transient failures
func (p *Poller) query(ctx context.Context, handle types.JobHandle) (types.StatusReport, error) {
	var report types.StatusReport
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "Poller.query")
		defer span.End()

		var err error
		report, err = p.backend.GetJobStatus(ctx, handle)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to get job status")

			var setupErr evalerrors.SetupError
			if errors.Is(err, ErrJobNotFound) || errors.As(err, &setupErr) {
				return err
			}

			logger.ForJob(handle.ID).WarnContext(ctx, "job status query failed", "error", err)
			return retry.RetryableError(err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "got job status")
		return nil
	})

	return report, err
}
