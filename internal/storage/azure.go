package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensures AzureBackend implements Backend interface.
var _ Backend = (*AzureBackend)(nil)

// Azure Blob store backed storage
type AzureBackend struct {
	client *azblob.Client
	// `container` in the storage account where objects are kept
	container string
	PageSize  int32
}

// `container` must be part of the storage account provided
func NewAzureBackend(
	accountName, accountKey, serviceURL, container string,
) (*AzureBackend, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{
				RetryDelay: time.Second,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if container == "" {
		return nil, errors.New("container is required")
	}

	return NewAzureBackendFromClient(client, container), nil
}

// `container` must be part of the storage account of `client`
func NewAzureBackendFromClient(client *azblob.Client, container string) *AzureBackend {
	return &AzureBackend{
		client:    client,
		container: container,
		PageSize:  DefaultPageSize,
	}
}

func (b *AzureBackend) ListObjects(ctx context.Context, prefix, token string) (ObjectPage, error) {
	ctx, span := tracer.Start(ctx, "AzureBackend.ListObjects", trace.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Bool("continued", token != ""),
	))
	defer span.End()

	opts := &azblob.ListBlobsFlatOptions{Prefix: &prefix}
	if b.PageSize > 0 {
		opts.MaxResults = &b.PageSize
	}
	if token != "" {
		opts.Marker = &token
	}

	pager := b.client.NewListBlobsFlatPager(b.container, opts)
	resp, err := pager.NextPage(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list blobs")
		return ObjectPage{}, err
	}

	var page ObjectPage
	if resp.NextMarker != nil {
		page.NextToken = *resp.NextMarker
	}
	if resp.Segment != nil {
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}

			obj := Object{Key: *item.Name}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				obj.Size = *item.Properties.ContentLength
			}
			page.Objects = append(page.Objects, obj)
		}
	}

	span.SetAttributes(attribute.Int("objects", len(page.Objects)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed blobs")
	return page, nil
}

func (b *AzureBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "AzureBackend.Download", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	res, err := b.client.DownloadStream(ctx, b.container, key, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download blob")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "downloaded blob")
	return res.Body, nil
}

func (b *AzureBackend) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
) error {
	ctx, span := tracer.Start(ctx, "AzureBackend.Upload", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	_, err := b.client.UploadStream(ctx, b.container, key, reader, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload reader")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded blob")
	return nil
}

func (b *AzureBackend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "AzureBackend.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	_, err := b.client.ServiceClient().
		NewContainerClient(b.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		// a missing blob is an answer, anything else is an error
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(bloberror.BlobNotFound) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "did not find blob")
			return false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check blob exists")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "found blob")
	return true, nil
}

func (b *AzureBackend) StoreIdentifier(_ context.Context) (string, error) {
	return b.container, nil
}
