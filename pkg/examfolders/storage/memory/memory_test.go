package memory_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/exam-assets/pkg/examfolders"
	memorystorage "github.com/tendant/exam-assets/pkg/examfolders/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := created
	backend := memorystorage.New(memorystorage.WithClock(func() time.Time { return clock }))

	t.Run("Exists", func(t *testing.T) {
		ok, err := backend.Exists(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Put", func(t *testing.T) {
		md := map[string]string{"category": "Skin"}
		err := backend.Put(ctx, "Patient Y/Skin/photo.jpg", strings.NewReader("jpeg"), "image/jpeg", md)
		require.NoError(t, err)

		// caller mutations must not leak into the stored copy
		md["category"] = "changed"

		data, ok := backend.Get("Patient Y/Skin/photo.jpg")
		require.True(t, ok)
		assert.Equal(t, "jpeg", string(data))
	})

	t.Run("Overwrite keeps creation time", func(t *testing.T) {
		clock = created.Add(time.Hour)
		require.NoError(t, backend.Put(ctx, "Patient Y/Skin/photo.jpg", strings.NewReader("jpeg2"), "image/jpeg", map[string]string{"category": "Skin"}))

		objects, err := backend.List(ctx, "Patient Y/Skin/photo.jpg", "")
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, created, objects[0].CreatedAt)
		assert.Equal(t, created.Add(time.Hour), objects[0].UpdatedAt)
		assert.Equal(t, int64(5), objects[0].Size)
		assert.Equal(t, "Skin", objects[0].Metadata["category"])
	})

	t.Run("List with delimiter", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "Patient Y/Skin/.folder_marker", strings.NewReader(""), "text/plain", nil))
		require.NoError(t, backend.Put(ctx, "Patient Y/Skin/Rash/close-up.jpg", strings.NewReader("x"), "image/jpeg", nil))

		direct, err := backend.List(ctx, "Patient Y/Skin/", "/")
		require.NoError(t, err)
		assert.Equal(t, []string{"Patient Y/Skin/.folder_marker", "Patient Y/Skin/photo.jpg"}, keys(direct))

		all, err := backend.List(ctx, "Patient Y/Skin/", "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Patient Y/Skin/.folder_marker",
			"Patient Y/Skin/Rash/close-up.jpg",
			"Patient Y/Skin/photo.jpg",
		}, keys(all))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "Patient Y/Skin/photo.jpg"))
		_, ok := backend.Get("Patient Y/Skin/photo.jpg")
		assert.False(t, ok)

		err := backend.Delete(ctx, "Patient Y/Skin/photo.jpg")
		assert.ErrorIs(t, err, examfolders.ErrObjectNotFound)
		assert.Equal(t, 2, backend.Len())
	})
}

func keys(objects []examfolders.ObjectInfo) []string {
	out := make([]string, 0, len(objects))
	for _, obj := range objects {
		out = append(out, obj.Key)
	}
	return out
}
