package cmds

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/summarybench/batcheval/cmd/batcheval/internal/common"
	"github.com/summarybench/batcheval/internal/logger"
)

var (
	prepareSplit string
	prepareForce bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Render a dataset split as batch input and upload it to the data dir",
	Long: `
Writes <data_dir>/<split>.jsonl with one {"recordId", "modelInput"} object per reference.
An existing object is left alone unless --force is set. Prints the upload result in --format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "prepareCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return withExitCode(err)
		}

		split := prepareSplit
		if split == "" {
			split = cfg.Dataset.Split
		}
		span.SetAttributes(attribute.String("split", split), attribute.Bool("force", prepareForce))

		backend, err := common.GetStorageBackend(ctx, cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create storage backend")
			return withExitCode(err)
		}

		result, err := common.GetPreparer(cfg, backend).Prepare(ctx, split, common.DataDir(cfg), prepareForce)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to prepare batch input")
			return withExitCode(err)
		}

		logger.Logger.InfoContext(ctx, "prepared batch input",
			"location", result.Location,
			"records", result.Records,
			"skipped", result.Skipped,
		)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "prepared batch input")
		return printResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	prepareCmd.Flags().StringVarP(&prepareSplit, "split", "s", "", "Dataset split (defaults to dataset.split)")
	prepareCmd.Flags().BoolVarP(&prepareForce, "force", "f", false, "Replace an existing batch input")
}
