package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// fakeS3 is an in-memory bucket good enough for single-part uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	now     time.Time
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}, now: time.Now()}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, modified: f.now}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	var keys []string
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if delim != "" && strings.Contains(strings.TrimPrefix(k, prefix), delim) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Disk_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	disk := NewS3Disk("offsite", fake, "backups", "/dr/")

	require.NoError(t, disk.MakeDirectory(ctx, "shop/archive/2026/10"))
	require.NoError(t, disk.Put(ctx, "shop/archive/2026/10/a.zip", strings.NewReader("zipbytes")))
	require.NoError(t, disk.Put(ctx, "shop/archive/2026/10/a.zip.sha256", strings.NewReader("sum")))
	require.NoError(t, disk.Put(ctx, "shop/archive/2026/11/b.zip", strings.NewReader("other")))

	assert.Contains(t, fake.objects, "dr/shop/archive/2026/10/a.zip")

	exists, err := disk.Exists(ctx, "shop/archive/2026/10/a.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = disk.Exists(ctx, "shop/archive/2026/10/missing.zip")
	require.NoError(t, err)
	assert.False(t, exists)

	files, err := disk.Files(ctx, "shop/archive/2026/10")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop/archive/2026/10/a.zip", "shop/archive/2026/10/a.zip.sha256"}, files)

	modified, err := disk.LastModified(ctx, "shop/archive/2026/10/a.zip")
	require.NoError(t, err)
	assert.True(t, modified.Equal(fake.now))

	_, err = disk.LastModified(ctx, "shop/archive/2026/10/missing.zip")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, disk.Delete(ctx, "shop/archive/2026/10/a.zip"))
	assert.NotContains(t, fake.objects, "dr/shop/archive/2026/10/a.zip")
}
