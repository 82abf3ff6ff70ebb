package fetch

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/hash"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/storage"
)

const DefaultConcurrency = 4

// Copies every result object under a job's output location into a local directory
type ResultFetcher struct {
	backend     storage.Backend
	concurrency int
}

// `concurrency` bounds parallel downloads, values below 1 use DefaultConcurrency
func NewResultFetcher(backend storage.Backend, concurrency int) *ResultFetcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	return &ResultFetcher{
		backend:     backend,
		concurrency: concurrency,
	}
}

// Lists every page under `location`, skips directory placeholders and downloads each object into
// `destDir` under its final key segment. Returns local paths in listing order.
//
// When two keys share a final segment the later one in listing order wins. Existing files are
// replaced atomically. No objects is not an error, the returned slice is empty.
//
// On failure the error is an evalerrors.FetchError listing the files that were retrieved.
func (f *ResultFetcher) FetchAll(ctx context.Context, location, destDir string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ResultFetcher.FetchAll", trace.WithAttributes(
		attribute.String("location", location),
		attribute.String("destDir", destDir),
	))
	defer span.End()

	loc, err := storage.ParseLocation(location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse location")
		return nil, evalerrors.FetchErrorWrap(location, nil, err)
	}

	if err := checkBucket(ctx, f.backend, loc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "location is not in this store")
		return nil, evalerrors.FetchErrorWrap(location, nil, err)
	}

	objects, err := storage.ListAll(ctx, f.backend, loc.DirPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list results")
		return nil, evalerrors.FetchErrorWrap(location, nil, err)
	}

	keys := resultKeys(objects)
	span.SetAttributes(attribute.Int("objects", len(objects)), attribute.Int("files", len(keys)))
	if len(keys) == 0 {
		logger.Logger.InfoContext(ctx, "no result files found", "location", location)
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "no results")
		return []string{}, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create destination")
		return nil, evalerrors.FetchErrorWrap(location, nil, err)
	}

	paths := make([]string, len(keys))
	errs := make([]error, len(keys))

	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			dest := filepath.Join(destDir, path.Base(key))
			errs[i] = f.download(ctx, key, dest)
			if errs[i] == nil {
				paths[i] = dest
			}
			return nil
		})
	}
	_ = g.Wait()

	files := make([]string, 0, len(keys))
	for _, p := range paths {
		if p != "" {
			files = append(files, p)
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Logger.ErrorContext(
			ctx,
			"failed to fetch some result files",
			"location", location,
			"retrieved", len(files),
			"total", len(keys),
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download results")
		return files, evalerrors.FetchErrorWrap(location, files, err)
	}

	logger.Logger.InfoContext(ctx, "fetched result files", "location", location, "count", len(files))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "fetched results")
	return files, nil
}

// Drops directory placeholders and keeps the last key for each local file name, in the
// position the name was first seen
func resultKeys(objects []storage.Object) []string {
	index := make(map[string]int, len(objects))
	var keys []string
	for _, obj := range objects {
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}

		name := path.Base(obj.Key)
		if i, ok := index[name]; ok {
			logger.Logger.Warn("result file name collision, keeping later key",
				"name", name,
				"dropped", keys[i],
				"kept", obj.Key,
			)
			keys[i] = obj.Key
			continue
		}

		index[name] = len(keys)
		keys = append(keys, obj.Key)
	}

	return keys
}

func (f *ResultFetcher) download(ctx context.Context, key, dest string) error {
	ctx, span := tracer.Start(ctx, "ResultFetcher.download", trace.WithAttributes(
		attribute.String("key", key),
		attribute.String("dest", dest),
	))
	defer span.End()

	body, err := f.backend.Download(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open object")
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp file")
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	digest, err := hash.Copy(ctx, tmp, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy object")
		return err
	}

	if err := tmp.Sync(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sync temp file")
		return err
	}
	if err := tmp.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close temp file")
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to move file into place")
		return err
	}

	logger.Logger.DebugContext(ctx, "downloaded result file",
		"key", key,
		"path", dest,
		"bytes", digest.Size,
		"sha256", digest.SHA256,
	)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "downloaded object")
	return nil
}
