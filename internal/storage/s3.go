package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// S3API is the subset of the S3 client used by S3Disk.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	s3.HeadObjectAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Disk stores objects in a bucket under an optional key prefix.
type S3Disk struct {
	name     string
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

func NewS3Disk(name string, client S3API, bucket, prefix string) *S3Disk {
	return &S3Disk{
		name:   name,
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 16 * 1024 * 1024
			u.Concurrency = 4
		}),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Disk) Name() string { return s.name }

func (s *S3Disk) fullKey(key string) string {
	key = strings.Trim(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Disk) relKey(fullKey string) string {
	if s.prefix == "" {
		return fullKey
	}
	return strings.TrimPrefix(fullKey, s.prefix+"/")
}

func (s *S3Disk) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

func (s *S3Disk) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, errors.Wrap(ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return out, nil
}

func (s *S3Disk) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.head(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MakeDirectory is a no-op, buckets have no directories.
func (s *S3Disk) MakeDirectory(ctx context.Context, dir string) error {
	return nil
}

func (s *S3Disk) Files(ctx context.Context, dir string) ([]string, error) {
	prefix := s.fullKey(dir) + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var files []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			files = append(files, path.Clean(s.relKey(key)))
		}
	}
	return files, nil
}

func (s *S3Disk) LastModified(ctx context.Context, key string) (time.Time, error) {
	out, err := s.head(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	return aws.ToTime(out.LastModified), nil
}

func (s *S3Disk) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
