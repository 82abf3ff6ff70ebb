package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/summarybench/batcheval/cmd/batcheval/cmds"
	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/logger"
	otelbatcheval "github.com/summarybench/batcheval/internal/otel"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/cmd/batcheval")

func runApp(ctx context.Context) int {
	useOTLP := false
	if raw := os.Getenv("USE_OTLP"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			logger.Logger.Warn("USE_OTLP env var is invalid", "error", err)
		}
		useOTLP = parsed
	}

	shutdown, err := otelbatcheval.SetupOTelSDK(ctx, "batcheval", useOTLP)
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	}
	defer func() {
		fail := shutdown(context.Background())
		if fail != nil {
			logger.Logger.Warn("no clean shutdown for otel", "error", fail)
		}
	}()

	// link to the submitting trace when launched from an instrumented parent
	parent := otelbatcheval.ParentContext(context.Background())
	ctx, span := tracer.Start(
		ctx,
		"batcheval",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(parent)),
	)
	defer span.End()

	err = cmds.Execute(ctx)
	if err != nil {
		logger.Logger.Error("error executing subcommands", "error", err, "kind", evalerrors.Kind(err))

		var ee evalerrors.ExitError
		if errors.As(err, &ee) {
			return ee.Code
		}
		return types.ExitErrored
	}

	return types.ExitNormal
}

func main() {
	logger.InitSlog(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runApp(ctx)
	stop()

	os.Exit(code)
}
