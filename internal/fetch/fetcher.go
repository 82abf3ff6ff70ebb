package fetch

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/fetch")

//go:generate mockgen -destination ./mock/mock.go -package mock . Fetcher

// Opens a single document by URL. Used for datasets and other inputs that are not job results.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
