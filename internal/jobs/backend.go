package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/jobs")

const DefaultJobNamePrefix = "batch-inference"

var (
	// The backend does not know the job. Status queries for it are not retried.
	ErrJobNotFound   = errors.New("job not found")
	ErrUnknownStatus = errors.New("unknown job status")
	ErrMissingRole   = errors.New("execution role is required")
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Backend

// Remote batch inference service
type Backend interface {
	// Create the job. Must not be retried by callers, a second call may start a second job.
	SubmitJob(ctx context.Context, spec types.JobSpec) (types.JobHandle, error)
	// Current status. Completed reports carry the location the results were written under.
	GetJobStatus(ctx context.Context, handle types.JobHandle) (types.StatusReport, error)
}

// <prefix>-YYYYMMDD-HHMMSS
func NewJobName(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultJobNamePrefix
	}

	return fmt.Sprintf("%s-%s", prefix, now.Format("20060102-150405"))
}
