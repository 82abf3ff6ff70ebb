package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure S3Backend implements Backend interface.
var _ Backend = (*S3Backend)(nil)

// Subset of *s3.Client used by S3Backend
type S3API interface {
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	GetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
	HeadObject(
		ctx context.Context,
		params *s3.HeadObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.HeadObjectOutput, error)
}

// Amazon S3 backed storage
type S3Backend struct {
	client   S3API
	bucket   string
	PageSize int32
}

// `endpoint` overrides the regional endpoint and switches to path style addressing when set
func NewS3Backend(cfg aws.Config, endpoint, bucket string) *S3Backend {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3BackendFromClient(client, bucket)
}

func NewS3BackendFromClient(client S3API, bucket string) *S3Backend {
	return &S3Backend{
		client:   client,
		bucket:   bucket,
		PageSize: DefaultPageSize,
	}
}

func (b *S3Backend) ListObjects(ctx context.Context, prefix, token string) (ObjectPage, error) {
	ctx, span := tracer.Start(ctx, "S3Backend.ListObjects", trace.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Bool("continued", token != ""),
	))
	defer span.End()

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	if b.PageSize > 0 {
		input.MaxKeys = aws.Int32(b.PageSize)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list objects")
		return ObjectPage{}, err
	}

	page := ObjectPage{
		Objects:   make([]Object, 0, len(out.Contents)),
		NextToken: aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, Object{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}

	span.SetAttributes(attribute.Int("objects", len(page.Objects)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed objects")
	return page, nil
}

func (b *S3Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "S3Backend.Download", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get object")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got object")
	return out.Body, nil
}

func (b *S3Backend) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
) error {
	ctx, span := tracer.Start(ctx, "S3Backend.Upload", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put object")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "put object")
	return nil
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "S3Backend.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "did not find object")
			return false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to head object")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "found object")
	return true, nil
}

func (b *S3Backend) StoreIdentifier(_ context.Context) (string, error) {
	return b.bucket, nil
}
