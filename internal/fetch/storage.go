package fetch

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/summarybench/batcheval/internal/storage"
)

// Ensure StorageFetcher implements Fetcher interface.
var _ Fetcher = (*StorageFetcher)(nil)

// Reads objects addressed as scheme://bucket/key from a storage backend
type StorageFetcher struct {
	backend storage.Backend
}

func NewStorageFetcher(backend storage.Backend) *StorageFetcher {
	return &StorageFetcher{
		backend: backend,
	}
}

func (f *StorageFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "StorageFetcher.Fetch", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	loc, err := storage.ParseLocation(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse location")
		return nil, err
	}

	if err := checkBucket(ctx, f.backend, loc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "location is not in this store")
		return nil, err
	}

	body, err := f.backend.Download(ctx, loc.Prefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download object")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "fetched object")
	return body, nil
}

func checkBucket(ctx context.Context, backend storage.Backend, loc storage.Location) error {
	ident, err := backend.StoreIdentifier(ctx)
	if err != nil {
		return err
	}

	if ident != loc.Bucket {
		return fmt.Errorf("%w: %s is not in %s", storage.ErrLocationMismatch, loc, ident)
	}

	return nil
}
