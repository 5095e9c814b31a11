package s3_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/exam-assets/pkg/examfolders"
	s3storage "github.com/tendant/exam-assets/pkg/examfolders/storage/s3"
)

type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// fakeS3 is an in-process stand-in for the S3 API
type fakeS3 struct {
	mu        sync.Mutex
	bucket    string
	objects   map[string]fakeObject
	headErr   error
	pageSize  int
	listCalls int
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: map[string]fakeObject{}, pageSize: 1000}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{
		data:        data,
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
		modified:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentType:   aws.String(obj.contentType),
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)
	var keys []string
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" && strings.Contains(key[len(prefix):], delimiter) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(in.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token)
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[start:end] {
		obj := f.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("exam-bucket")
	backend := s3storage.NewWithClient(fake, "exam-bucket")

	t.Run("Exists", func(t *testing.T) {
		ok, err := backend.Exists(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)

		missing := s3storage.NewWithClient(fake, "other-bucket")
		ok, err = missing.Exists(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Put", func(t *testing.T) {
		err := backend.Put(ctx, "Patient Y/Skin/photo.jpg", strings.NewReader("jpeg"), "image/jpeg",
			map[string]string{"category": "Skin"})
		require.NoError(t, err)

		obj, ok := fake.objects["Patient Y/Skin/photo.jpg"]
		require.True(t, ok)
		assert.Equal(t, "jpeg", string(obj.data))
		assert.Equal(t, "image/jpeg", obj.contentType)
		assert.Equal(t, "Skin", obj.metadata["category"])
	})

	t.Run("List resolves content types", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "Patient Y/Skin/.folder_marker", strings.NewReader(""), "text/plain", nil))
		require.NoError(t, backend.Put(ctx, "Patient Y/Skin/Rash/a.jpg", strings.NewReader("a"), "image/jpeg", nil))

		direct, err := backend.List(ctx, "Patient Y/Skin/", "/")
		require.NoError(t, err)
		require.Len(t, direct, 2)
		assert.Equal(t, "Patient Y/Skin/.folder_marker", direct[0].Key)
		assert.Equal(t, "text/plain", direct[0].ContentType)
		assert.Equal(t, "image/jpeg", direct[1].ContentType)
		assert.Equal(t, int64(4), direct[1].Size)
		assert.Equal(t, direct[1].UpdatedAt, direct[1].CreatedAt)
		assert.Equal(t, map[string]string{"category": "Skin"}, direct[1].Metadata)
	})

	t.Run("List pages", func(t *testing.T) {
		fake.pageSize = 1
		defer func() { fake.pageSize = 1000 }()
		fake.listCalls = 0

		all, err := backend.List(ctx, "Patient Y/", "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Equal(t, 3, fake.listCalls)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "Patient Y/Skin/photo.jpg"))
		_, ok := fake.objects["Patient Y/Skin/photo.jpg"]
		assert.False(t, ok)
	})
}

func TestS3ExistsErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSuchBucket code", func(t *testing.T) {
		fake := newFakeS3("exam-bucket")
		fake.headErr = &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}

		ok, err := s3storage.NewWithClient(fake, "exam-bucket").Exists(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("access denied", func(t *testing.T) {
		fake := newFakeS3("exam-bucket")
		fake.headErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "forbidden"}

		ok, err := s3storage.NewWithClient(fake, "exam-bucket").Exists(ctx)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestS3NewRequiresBucket(t *testing.T) {
	_, err := s3storage.New(s3storage.Config{Region: "us-east-1"})
	assert.Error(t, err)
}

var _ examfolders.ObjectStore = (*s3storage.Backend)(nil)
