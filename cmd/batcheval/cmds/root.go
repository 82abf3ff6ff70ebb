package cmds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v2"

	"github.com/summarybench/batcheval/internal/config"
	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/pipeline"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/cmd/batcheval/cmds")

var rootCmd = &cobra.Command{
	Use:   "batcheval",
	Short: "Run batch inference jobs and score their summaries with ROUGE",
	Long: `
Exit codes:
  0 success
  1 any error not listed below
  2 the remote job ended failed or stopped
  3 the job completed without result files`,
	SilenceUsage: true,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Loads config and applies the configured log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, evalerrors.SetupErrorWrap(err)
	}

	logger.SetLevel(cfg.Logging.App.Level)
	return cfg, nil
}

// Attaches the process exit code the error maps to
func withExitCode(err error) error {
	var statusErr evalerrors.JobStatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &statusErr):
		return evalerrors.ExitErrorWrap(types.ExitJobFailed, err)
	case errors.Is(err, pipeline.ErrNoResults):
		return evalerrors.ExitErrorWrap(types.ExitNoResults, err)
	default:
		return evalerrors.ExitErrorWrap(types.ExitErrored, err)
	}
}

var outputFormat string

var errUnknownFormat = errors.New("unknown output format")

// Writes a command result to stdout in the --format the user asked for
func printResult(w io.Writer, v any) error {
	switch outputFormat {
	case "", "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("%w: %s", errUnknownFormat, outputFormat)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "json", "Result format on stdout (json or yaml)")
}
