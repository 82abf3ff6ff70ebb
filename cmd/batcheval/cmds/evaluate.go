package cmds

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/summarybench/batcheval/cmd/batcheval/internal/common"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/pipeline"
	"github.com/summarybench/batcheval/internal/types"
)

var (
	evaluateOutput       string
	evaluateJobName      string
	evaluateAllowPartial bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <job id>",
	Short: "Score the outputs of a job that already completed",
	Long: `
Downloads <bucket>/<batch_outputs_dir>/<job id> (or --output), correlates the outputs with
the configured split and writes the same artifacts as "run". The job backend is not queried.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "evaluateCmd")
		defer span.End()

		handle := types.NewJobHandle(args[0])
		span.SetAttributes(attribute.String("job.id", handle.ID))

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return withExitCode(err)
		}

		output := evaluateOutput
		if output == "" {
			output = common.BatchOutputsDir(cfg).Join(handle.ID).String()
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

		orchestrator, err := common.GetOrchestrator(ctx, cfg, backend, evaluateAllowPartial)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build orchestrator")
			return withExitCode(err)
		}

		result, err := orchestrator.Evaluate(ctx, pipeline.EvaluateRequest{
			Handle:         handle,
			JobName:        evaluateJobName,
			ModelID:        cfg.ModelID,
			OutputLocation: output,
			References:     refs,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "evaluation failed")
			return withExitCode(err)
		}

		logger.Logger.InfoContext(ctx, "evaluation finished",
			"job_id", handle.ID,
			"run_id", result.RunID,
			"predictions", result.Artifacts.Predictions,
			"metrics", result.Artifacts.Metrics,
		)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "evaluated job")
		return printResult(cmd.OutOrStdout(), result.Report)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateOutput, "output", "o", "", "Storage URI of the job outputs")
	evaluateCmd.Flags().StringVarP(&evaluateJobName, "job-name", "n", "", "Job name recorded in the run history (defaults to the job id)")
	evaluateCmd.Flags().BoolVar(&evaluateAllowPartial, "allow-partial", false, "Score whatever was downloaded when some downloads fail")
}
