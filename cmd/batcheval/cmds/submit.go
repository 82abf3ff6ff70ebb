package cmds

import (
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/summarybench/batcheval/cmd/batcheval/internal/common"
	"github.com/summarybench/batcheval/internal/audit"
	"github.com/summarybench/batcheval/internal/jobs"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/types"
)

var submitTags map[string]string

type submitOutput struct {
	Spec   types.JobSpec   `json:"spec"   yaml:"spec"`
	Handle types.JobHandle `json:"handle" yaml:"handle"`
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a batch inference job over the prepared split and exit",
	Long: `
Prints the job spec and handle in --format. Evaluate the job later with
"batcheval evaluate <job id>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "submitCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return withExitCode(err)
		}

		backend, err := common.GetJobBackend(ctx, cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create job backend")
			return withExitCode(err)
		}

		spec := common.NewJobSpec(cfg, time.Now(), submitTags)
		span.SetAttributes(attribute.String("job.name", spec.JobName))

		handle, err := jobs.NewSubmitter(backend).Submit(ctx, spec)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to submit job")
			return withExitCode(err)
		}

		audit.LogJobSubmitted(audit.Context{}, spec, handle)
		logger.Logger.InfoContext(ctx, "submitted job", "job_id", handle.ID, "identifier", handle.Identifier)

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submitted job")
		return printResult(cmd.OutOrStdout(), submitOutput{Spec: spec, Handle: handle})
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringToStringVarP(&submitTags, "tag", "t", nil, "Tag to put on the remote job (key=value)")
}
