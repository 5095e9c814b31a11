package examfolders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("PST", -8*3600))
}

func TestUploadThenList(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y", examfolders.WithClock(fixedClock))

	loc := examfolders.Location{Category: "Skin", Subcategory: "Inspection"}
	key, err := uploader.Upload(ctx, loc, "photo1.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Patient Y/Skin/Inspection/photo1.jpg", key)

	files, err := examfolders.NewLister(store, "Patient Y", nil).List(ctx, loc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo1.jpg", files[0].Name)
	assert.Equal(t, "image/jpeg", files[0].ContentType)
	assert.Equal(t, int64(len("jpeg-bytes")), files[0].Size)
	assert.Equal(t, map[string]string{
		"category":    "Skin",
		"subcategory": "Inspection",
		"uploaded_by": "PhysicalExamFolderManager",
		"uploaded_at": "2024-03-01T17:30:00Z",
	}, files[0].Metadata)
}

func TestUploadDefaults(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y", examfolders.WithUploadedBy("nurse-station"))

	key, err := uploader.Upload(ctx, examfolders.Location{Category: "Skin"}, " notes?.bin ", []byte{1, 2, 3}, "")
	require.NoError(t, err)
	assert.Equal(t, "Patient Y/Skin/notes_.bin", key)

	objects, err := store.List(ctx, key, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "application/octet-stream", objects[0].ContentType)
	assert.Equal(t, "nurse-station", objects[0].Metadata["uploaded_by"])
}

func TestUploadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing category", func(t *testing.T) {
		store := newFaultyStore()
		uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y")

		_, err := uploader.Upload(ctx, examfolders.Location{}, "photo.jpg", []byte("x"), "image/jpeg")

		var uploadErr *examfolders.UploadError
		require.ErrorAs(t, err, &uploadErr)
		assert.ErrorIs(t, err, examfolders.ErrCategoryRequired)
		assert.Empty(t, store.Calls())
	})

	t.Run("empty file name", func(t *testing.T) {
		uploader := examfolders.NewUploader(newFaultyStore(), "exam-bucket", "Patient Y")

		_, err := uploader.Upload(ctx, examfolders.Location{Category: "Skin"}, "   ", []byte("x"), "")
		assert.ErrorIs(t, err, examfolders.ErrFileNameRequired)
	})

	t.Run("store failure", func(t *testing.T) {
		store := newFaultyStore()
		storeErr := errors.New("quota exceeded")
		store.putErr = func(string) error { return storeErr }
		uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y")

		key, err := uploader.Upload(ctx, examfolders.Location{Category: "Skin"}, "photo.jpg", []byte("x"), "image/jpeg")
		assert.Empty(t, key)

		var uploadErr *examfolders.UploadError
		require.ErrorAs(t, err, &uploadErr)
		assert.Equal(t, "Patient Y/Skin/photo.jpg", uploadErr.Key)
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, []string{"put"}, store.Calls())
	})
}

func TestPublicURL(t *testing.T) {
	uploader := examfolders.NewUploader(nil, "exam-bucket", "Patient Y")
	assert.Equal(t,
		"https://storage.googleapis.com/exam-bucket/Patient Y/Skin/photo1.jpg",
		uploader.PublicURL("Patient Y/Skin/photo1.jpg"))

	custom := examfolders.NewUploader(nil, "exam-bucket", "Patient Y", examfolders.WithPublicBaseURL("https://cdn.example.com/"))
	assert.Equal(t, "https://cdn.example.com/exam-bucket/a/b.png", custom.PublicURL("/a/b.png"))
}

func TestUploaderDelete(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y")

	key, err := uploader.Upload(ctx, examfolders.Location{Category: "Skin"}, "photo.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)

	assert.True(t, uploader.Delete(ctx, key))
	assert.False(t, uploader.Delete(ctx, key))
	assert.Equal(t, 0, store.Len())
}

func TestUploadRejectsSkippedLevel(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	uploader := examfolders.NewUploader(store, "exam-bucket", "Patient Y")

	_, err := uploader.Upload(ctx, examfolders.Location{Category: "Skin", Subcategory: "  ", Item: "Nails"}, "photo1.jpg", []byte("x"), "image/jpeg")

	var uploadErr *examfolders.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.ErrorIs(t, err, examfolders.ErrSubcategoryRequired)
	assert.Empty(t, store.Calls())
	assert.Equal(t, 0, store.Len())
}
