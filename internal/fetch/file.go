package fetch

import (
	"context"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure FileFetcher implements Fetcher interface.
var _ Fetcher = (*FileFetcher)(nil)

// Reads local paths, with or without a file:// prefix
type FileFetcher struct{}

func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

func (f *FileFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	_, span := tracer.Start(ctx, "FileFetcher.Fetch", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	file, err := os.Open(strings.TrimPrefix(url, "file://"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open file")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "opened file")
	return file, nil
}
