// Package pipeline drives a batch job from submission to a persisted metrics report.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/summarybench/batcheval/internal/archive"
	"github.com/summarybench/batcheval/internal/correlate"
	"github.com/summarybench/batcheval/internal/jobs"
	"github.com/summarybench/batcheval/internal/queue"
	"github.com/summarybench/batcheval/internal/results"
	"github.com/summarybench/batcheval/internal/store"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/pipeline")

var ErrNoResults = errors.New("job completed but produced no result files")

// Satisfied by *fetch.ResultFetcher
type ResultFetcher interface {
	FetchAll(ctx context.Context, location, destDir string) ([]string, error)
}

type Options struct {
	// Local staging root, each job gets <ResultsDir>/<job id>
	ResultsDir   string
	PollInterval time.Duration
	// Continue with the files that were retrieved when some downloads fail
	AllowPartial bool

	// Optional. Failures are logged and never fail a run.
	Archiver archive.Archiver
	Store    store.RunStore
	Queuer   queue.Queuer
}

type Orchestrator struct {
	submitter *jobs.Submitter
	poller    *jobs.Poller
	fetcher   ResultFetcher
	options   Options
	now       func() time.Time
}

func New(
	submitter *jobs.Submitter,
	poller *jobs.Poller,
	fetcher ResultFetcher,
	options Options,
) *Orchestrator {
	return &Orchestrator{
		submitter: submitter,
		poller:    poller,
		fetcher:   fetcher,
		options:   options,
		now:       time.Now,
	}
}

// Everything known about a finished run
type Result struct {
	Manifest  *types.JobManifest
	Handle    types.JobHandle
	Outcome   types.JobOutcome
	Artifacts results.Artifacts
	Report    types.MetricReport
	Stats     correlate.Stats
	RunID     uuid.UUID
	// The job was evaluated from partial results
	Partial bool
}

// Evaluates the outputs of a job that already completed
type EvaluateRequest struct {
	Handle types.JobHandle
	// Submitted name, kept in the run history. The metrics report always carries Handle.ID.
	JobName string
	ModelID string
	// Storage URI the job wrote its outputs under
	OutputLocation string
	References     []types.ReferenceRecord
}
