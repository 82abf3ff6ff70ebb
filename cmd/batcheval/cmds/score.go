package cmds

import (
	"errors"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/results"
	"github.com/summarybench/batcheval/internal/rouge"
	"github.com/summarybench/batcheval/internal/types"
)

var (
	scoreJobName string
	scoreModelID string
)

var scoreCmd = &cobra.Command{
	Use:   "score <predictions.jsonl>",
	Short: "Score a correlated predictions file written by run or evaluate",
	Long: `
Reads {"dialogue", "reference", "prediction"} lines and prints the metrics report in --format.
Needs no configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "scoreCmd")
		defer span.End()

		span.SetAttributes(attribute.String("path", args[0]))

		pairs, err := results.ReadCorrelated(ctx, args[0])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read predictions")
			return withExitCode(err)
		}

		scores, err := rouge.Score(pairs)
		if err != nil {
			var scoringErr evalerrors.ScoringError
			if !errors.As(err, &scoringErr) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to score predictions")
				return withExitCode(err)
			}
			logger.Logger.WarnContext(ctx, "scored an empty corpus", "path", args[0], "error", err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "scored predictions")
		return printResult(cmd.OutOrStdout(), types.NewMetricReport(scoreJobName, scoreModelID, len(pairs), scores))
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreJobName, "job-name", "n", "", "Job id written as job_name in the report")
	scoreCmd.Flags().StringVarP(&scoreModelID, "model-id", "m", "", "Model id for the report")
}
