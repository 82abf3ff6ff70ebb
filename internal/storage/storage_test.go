package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/summarybench/batcheval/internal/storage"
	mockstorage "github.com/summarybench/batcheval/internal/storage/mock"
)

func TestListAll(t *testing.T) {
	t.Run("FollowsTokens", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)

		gomock.InOrder(
			b.EXPECT().ListObjects(gomock.Any(), "out/", "").Return(storage.ObjectPage{
				Objects:   []storage.Object{{Key: "out/a"}, {Key: "out/b"}},
				NextToken: "t1",
			}, nil),
			b.EXPECT().ListObjects(gomock.Any(), "out/", "t1").Return(storage.ObjectPage{
				Objects:   []storage.Object{{Key: "out/c"}},
				NextToken: "t2",
			}, nil),
			b.EXPECT().ListObjects(gomock.Any(), "out/", "t2").Return(storage.ObjectPage{}, nil),
		)

		objects, err := storage.ListAll(ctx, b, "out/")
		require.NoError(t, err, "failed to list")
		assert.Equal(t, []storage.Object{{Key: "out/a"}, {Key: "out/b"}, {Key: "out/c"}}, objects)
	})

	t.Run("Error", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)

		b.EXPECT().ListObjects(gomock.Any(), "out/", "").Return(storage.ObjectPage{
			Objects:   []storage.Object{{Key: "out/a"}},
			NextToken: "t1",
		}, nil)
		b.EXPECT().ListObjects(gomock.Any(), "out/", "t1").Return(storage.ObjectPage{}, errors.New("expected error"))

		_, err := storage.ListAll(ctx, b, "out/")
		require.Error(t, err, "somehow did not get error")
	})

	t.Run("RepeatedTokenStops", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		b := mockstorage.NewMockBackend(ctrl)

		b.EXPECT().ListObjects(gomock.Any(), "", "").Return(storage.ObjectPage{NextToken: "same"}, nil)
		b.EXPECT().ListObjects(gomock.Any(), "", "same").Return(storage.ObjectPage{NextToken: "same"}, nil)

		_, err := storage.ListAll(ctx, b, "")
		require.NoError(t, err)
	})
}
