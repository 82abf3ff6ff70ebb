package storage

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/storage")

// Page size used by backends when none is configured
const DefaultPageSize = 1000

type Object struct {
	Key  string
	Size int64
}

type ObjectPage struct {
	Objects []Object
	// Pass back to ListObjects for the following page. Empty when there are no more pages.
	NextToken string
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Backend

// Object store holding batch inputs, job outputs and archived results
type Backend interface {
	// One page of the objects whose key starts with `prefix`. An empty `token` requests the first page.
	ListObjects(ctx context.Context, prefix, token string) (ObjectPage, error)
	// Caller closes the returned reader
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Create / Overwrite object contents at `key`
	Upload(ctx context.Context, reader io.ReadSeeker, length int64, key string) error
	// Check if an object exists
	Exists(ctx context.Context, key string) (bool, error)
	// Provide an identifier for where objects live (bucket / container name). Useful for logging and for
	// checking that a location belongs to this backend.
	StoreIdentifier(ctx context.Context) (string, error)
}

// Follows continuation tokens until the listing is exhausted
func ListAll(ctx context.Context, b Backend, prefix string) ([]Object, error) {
	ctx, span := tracer.Start(ctx, "ListAll", trace.WithAttributes(
		attribute.String("prefix", prefix),
	))
	defer span.End()

	var objects []Object
	token := ""
	pages := 0
	for {
		page, err := b.ListObjects(ctx, prefix, token)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to list page")
			return nil, err
		}
		pages++
		objects = append(objects, page.Objects...)

		if page.NextToken == "" || page.NextToken == token {
			break
		}
		token = page.NextToken
	}

	span.SetAttributes(attribute.Int("pages", pages), attribute.Int("objects", len(objects)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed objects")
	return objects, nil
}
