package cmds

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/summarybench/batcheval/cmd/batcheval/internal/common"
	"github.com/summarybench/batcheval/internal/logger"
)

var (
	runTags         map[string]string
	runAllowPartial bool
	runTimeout      time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a job, wait for it and score its outputs",
	Long: `
Loads the references of the configured split, submits a job over the prepared batch input,
polls every poll_interval until the job ends, then downloads, correlates and scores the
outputs. Writes <results_dir>/<job id>/<job id>_predictions.jsonl and <job id>_metrics.json
and prints the metrics report in --format.

Cancelling the command or hitting --timeout stops the wait, not the remote job.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "runCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return withExitCode(err)
		}

		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		backend, err := common.GetStorageBackend(ctx, cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create storage backend")
			return withExitCode(err)
		}

		refs, err := common.GetDatasetProvider(cfg, backend).References(ctx, cfg.Dataset.Split)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load references")
			return withExitCode(err)
		}

		orchestrator, err := common.GetOrchestrator(ctx, cfg, backend, runAllowPartial)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build orchestrator")
			return withExitCode(err)
		}

		spec := common.NewJobSpec(cfg, time.Now(), runTags)
		span.SetAttributes(
			attribute.String("job.name", spec.JobName),
			attribute.Int("references", len(refs)),
		)

		result, err := orchestrator.Run(ctx, spec, refs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run failed")
			return withExitCode(err)
		}

		logger.Logger.InfoContext(ctx, "run finished",
			"job_id", result.Handle.ID,
			"run_id", result.RunID,
			"predictions", result.Artifacts.Predictions,
			"metrics", result.Artifacts.Metrics,
		)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "run finished")
		return printResult(cmd.OutOrStdout(), result.Report)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringToStringVarP(&runTags, "tag", "t", nil, "Tag to put on the remote job (key=value)")
	runCmd.Flags().BoolVar(&runAllowPartial, "allow-partial", false, "Score whatever was downloaded when some downloads fail")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Give up waiting after this long (0 waits forever)")
}
