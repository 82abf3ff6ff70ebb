package fetch_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/fetch"
	"github.com/summarybench/batcheval/internal/storage"
	mockstorage "github.com/summarybench/batcheval/internal/storage/mock"
)

const outputs = "s3://bucket/bedrock/batch-outputs/j45wouwjfza7"

func body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err, "failed to read %s", p)
	return string(b)
}

func TestFetchAll(t *testing.T) {
	t.Run("PagesAndPlaceholders", func(t *testing.T) {
		ctx := context.Background()
		dest := filepath.Join(t.TempDir(), "j45wouwjfza7")

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil).AnyTimes()

		prefix := "bedrock/batch-outputs/j45wouwjfza7/"
		b.EXPECT().ListObjects(gomock.Any(), prefix, "").Return(storage.ObjectPage{
			Objects: []storage.Object{
				{Key: prefix},
				{Key: prefix + "validation.jsonl.out"},
			},
			NextToken: "next",
		}, nil)
		b.EXPECT().ListObjects(gomock.Any(), prefix, "next").Return(storage.ObjectPage{
			Objects: []storage.Object{{Key: prefix + "manifest.json.out"}},
		}, nil)
		b.EXPECT().Download(gomock.Any(), prefix+"validation.jsonl.out").Return(body("records"), nil)
		b.EXPECT().Download(gomock.Any(), prefix+"manifest.json.out").Return(body("{}"), nil)

		f := fetch.NewResultFetcher(b, 2)
		files, err := f.FetchAll(ctx, outputs, dest)
		require.NoError(t, err, "failed to fetch")

		assert.Equal(t, []string{
			filepath.Join(dest, "validation.jsonl.out"),
			filepath.Join(dest, "manifest.json.out"),
		}, files)
		assert.Equal(t, "records", readFile(t, files[0]))
		assert.Equal(t, "{}", readFile(t, files[1]))

		entries, err := os.ReadDir(dest)
		require.NoError(t, err)
		assert.Len(t, entries, 2, "no temp files should be left behind")
	})

	t.Run("Empty", func(t *testing.T) {
		ctx := context.Background()
		dest := filepath.Join(t.TempDir(), "out")

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), "").Return(storage.ObjectPage{
			Objects: []storage.Object{{Key: "bedrock/batch-outputs/j45wouwjfza7/"}},
		}, nil)

		files, err := fetch.NewResultFetcher(b, 0).FetchAll(ctx, outputs, dest)
		require.NoError(t, err, "empty results are not an error")
		assert.NotNil(t, files)
		assert.Empty(t, files)
	})

	t.Run("NameCollisionKeepsLater", func(t *testing.T) {
		ctx := context.Background()
		dest := t.TempDir()

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), "").Return(storage.ObjectPage{
			Objects: []storage.Object{
				{Key: "bedrock/batch-outputs/j45wouwjfza7/a/part.jsonl.out"},
				{Key: "bedrock/batch-outputs/j45wouwjfza7/b/part.jsonl.out"},
			},
		}, nil)
		b.EXPECT().Download(gomock.Any(), "bedrock/batch-outputs/j45wouwjfza7/b/part.jsonl.out").Return(body("later"), nil)

		files, err := fetch.NewResultFetcher(b, 4).FetchAll(ctx, outputs, dest)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "later", readFile(t, files[0]))
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		ctx := context.Background()
		dest := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dest, "x.jsonl.out"), []byte("stale and longer"), 0o600))

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), "").Return(storage.ObjectPage{
			Objects: []storage.Object{{Key: "bedrock/batch-outputs/j45wouwjfza7/x.jsonl.out"}},
		}, nil)
		b.EXPECT().Download(gomock.Any(), gomock.Any()).Return(body("fresh"), nil)

		files, err := fetch.NewResultFetcher(b, 1).FetchAll(ctx, outputs, dest)
		require.NoError(t, err)
		assert.Equal(t, "fresh", readFile(t, files[0]))
	})

	t.Run("PartialFailure", func(t *testing.T) {
		ctx := context.Background()
		dest := t.TempDir()

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), "").Return(storage.ObjectPage{
			Objects: []storage.Object{
				{Key: "bedrock/batch-outputs/j45wouwjfza7/ok.jsonl.out"},
				{Key: "bedrock/batch-outputs/j45wouwjfza7/broken.jsonl.out"},
			},
		}, nil)
		b.EXPECT().
			Download(gomock.Any(), "bedrock/batch-outputs/j45wouwjfza7/ok.jsonl.out").
			Return(body("fine"), nil)
		b.EXPECT().
			Download(gomock.Any(), "bedrock/batch-outputs/j45wouwjfza7/broken.jsonl.out").
			Return(nil, errors.New("expected error"))

		files, err := fetch.NewResultFetcher(b, 2).FetchAll(ctx, outputs, dest)
		require.Error(t, err, "somehow fetched everything")

		var fetchErr evalerrors.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, []string{filepath.Join(dest, "ok.jsonl.out")}, fetchErr.Files)
		assert.Equal(t, fetchErr.Files, files)
		assert.Equal(t, outputs, fetchErr.Location)
	})

	t.Run("ListingFailure", func(t *testing.T) {
		ctx := context.Background()

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), gomock.Any()).Return(storage.ObjectPage{}, errors.New("expected error"))

		_, err := fetch.NewResultFetcher(b, 2).FetchAll(ctx, outputs, t.TempDir())
		var fetchErr evalerrors.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Empty(t, fetchErr.Files)
	})

	t.Run("WrongBucket", func(t *testing.T) {
		ctx := context.Background()

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("other-bucket", nil)

		_, err := fetch.NewResultFetcher(b, 2).FetchAll(ctx, outputs, t.TempDir())
		assert.ErrorIs(t, err, storage.ErrLocationMismatch)
	})

	t.Run("InvalidLocation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)

		_, err := fetch.NewResultFetcher(b, 2).FetchAll(context.Background(), "not a uri", t.TempDir())
		assert.ErrorIs(t, err, storage.ErrInvalidLocation)
	})

	t.Run("BoundedConcurrency", func(t *testing.T) {
		ctx := context.Background()
		dest := t.TempDir()
		limit := 3

		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)

		var objects []storage.Object
		for _, name := range strings.Split("a b c d e f g h i j", " ") {
			objects = append(objects, storage.Object{Key: "bedrock/batch-outputs/j45wouwjfza7/" + name})
		}
		b.EXPECT().ListObjects(gomock.Any(), gomock.Any(), "").Return(storage.ObjectPage{Objects: objects}, nil)

		var active, peak atomic.Int32
		var mu sync.Mutex
		b.EXPECT().
			Download(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, key string) (io.ReadCloser, error) {
				n := active.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()
				time.Sleep(time.Millisecond * 20)
				active.Add(-1)
				return body(key), nil
			}).
			Times(len(objects))

		files, err := fetch.NewResultFetcher(b, limit).FetchAll(ctx, outputs, dest)
		require.NoError(t, err)
		assert.Len(t, files, len(objects))
		assert.LessOrEqual(t, int(peak.Load()), limit, "too many parallel downloads")
		assert.Equal(t, filepath.Join(dest, "a"), files[0], "listing order is kept")
	})
}
