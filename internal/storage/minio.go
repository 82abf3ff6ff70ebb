package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure MinioBackend implements Backend interface.
var _ Backend = (*MinioBackend)(nil)

// Minio (S3 compatible) backed storage
type MinioBackend struct {
	client   *minio.Client
	bucket   string
	PageSize int
}

func NewMinioBackend(
	endpoint, id, secret string,
	ssl bool,
	bucket string,
) (*MinioBackend, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(id, secret, ""),
		Secure: ssl,
	})
	if err != nil {
		return nil, err
	}

	return NewMinioBackendFromClient(client, bucket), nil
}

func NewMinioBackendFromClient(client *minio.Client, bucket string) *MinioBackend {
	return &MinioBackend{
		client:   client,
		bucket:   bucket,
		PageSize: DefaultPageSize,
	}
}

// The minio client streams the whole listing, so a page ends after PageSize keys and the last
// key becomes the token to start after.
func (b *MinioBackend) ListObjects(ctx context.Context, prefix, token string) (ObjectPage, error) {
	ctx, span := tracer.Start(ctx, "MinioBackend.ListObjects", trace.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Bool("continued", token != ""),
	))
	defer span.End()

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var page ObjectPage
	for obj := range b.client.ListObjects(lctx, b.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: token,
		MaxKeys:    b.PageSize,
	}) {
		if obj.Err != nil {
			span.RecordError(obj.Err)
			span.SetStatus(codes.Error, "failed to list objects")
			return ObjectPage{}, obj.Err
		}

		page.Objects = append(page.Objects, Object{Key: obj.Key, Size: obj.Size})
		if b.PageSize > 0 && len(page.Objects) == b.PageSize {
			page.NextToken = obj.Key
			break
		}
	}

	span.SetAttributes(attribute.Int("objects", len(page.Objects)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed objects")
	return page, nil
}

func (b *MinioBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "MinioBackend.Download", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get object")
		return nil, err
	}

	// GetObject is lazy, stat so a missing key fails here rather than on first read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat object")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got object")
	return obj, nil
}

func (b *MinioBackend) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
) error {
	ctx, span := tracer.Start(ctx, "MinioBackend.Upload", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	_, err := b.client.PutObject(ctx, b.bucket, key, reader, length, minio.PutObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put object")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "put object")
	return nil
}

func (b *MinioBackend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "MinioBackend.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "did not find object")
			return false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat object")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "statted object")
	return true, nil
}

func (b *MinioBackend) StoreIdentifier(_ context.Context) (string, error) {
	return b.bucket, nil
}
