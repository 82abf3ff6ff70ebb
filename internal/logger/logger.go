// Package logger holds the process wide structured logger.
package logger

import (
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

var LogLevel = new(slog.LevelVar)

// JSON on stderr, since stdout carries command results. Records logged with a context carry its
// trace and span ids.
var Handler slog.Handler = slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))(
	slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true, Level: LogLevel}),
)

var Logger = slog.New(Handler)

func InitSlog(level slog.Level) {
	slog.SetDefault(Logger)
	LogLevel.Set(level)
}

// Applies logging.app.level, an slog level number: -4 debug, 0 info, 4 warn, 8 error
func SetLevel(level int) {
	LogLevel.Set(slog.Level(level))
}

// Tags every record with the batch job it is about
func ForJob(jobID string) *slog.Logger {
	return Logger.With("job_id", jobID)
}
