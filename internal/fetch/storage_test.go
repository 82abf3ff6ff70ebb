package fetch_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/summarybench/batcheval/internal/fetch"
	mockfetch "github.com/summarybench/batcheval/internal/fetch/mock"
	"github.com/summarybench/batcheval/internal/storage"
	mockstorage "github.com/summarybench/batcheval/internal/storage/mock"
)

func TestStorageFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("Download", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)
		b.EXPECT().Download(gomock.Any(), "datasets/dialogsum/validation.jsonl").Return(body("rows"), nil)

		rc, err := fetch.NewStorageFetcher(b).Fetch(ctx, "s3://bucket/datasets/dialogsum/validation.jsonl")
		require.NoError(t, err, "failed to fetch")
		defer rc.Close()

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "rows", string(content))
	})

	t.Run("WrongBucket", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)
		b.EXPECT().StoreIdentifier(gomock.Any()).Return("bucket", nil)

		_, err := fetch.NewStorageFetcher(b).Fetch(ctx, "s3://elsewhere/x.jsonl")
		assert.ErrorIs(t, err, storage.ErrLocationMismatch)
	})
}

func TestMultiFetcher(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	local := filepath.Join(dir, "validation.jsonl")
	require.NoError(t, os.WriteFile(local, []byte("local"), 0o600))

	ctrl := gomock.NewController(t)
	remote := mockfetch.NewMockFetcher(ctrl)
	remote.EXPECT().Fetch(gomock.Any(), "s3://bucket/x.jsonl").Return(body("remote"), nil)

	m := fetch.NewMultiFetcher(map[string]fetch.Fetcher{"s3": remote})

	for url, expected := range map[string]string{
		local:                 "local",
		"file://" + local:     "local",
		"s3://bucket/x.jsonl": "remote",
	} {
		rc, err := m.Fetch(ctx, url)
		require.NoError(t, err, "failed to fetch %s", url)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, expected, string(content), url)
	}

	_, err := m.Fetch(ctx, "gs://bucket/x.jsonl")
	require.Error(t, err, "no fetcher registered for gs")

	_, err = m.Fetch(ctx, filepath.Join(dir, "missing.jsonl"))
	require.Error(t, err)
}
