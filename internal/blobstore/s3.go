package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ternlund/datapact/internal/apperr"
)

const yamlContentType = "application/x-yaml"

// S3API is the subset of the S3 client the store needs.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores blobs in an S3 bucket, creating the bucket on first write if
// it does not exist.
type S3 struct {
	api    S3API
	bucket string
	region string

	ensureOnce sync.Once
	ensureErr  error
}

var _ Store = (*S3)(nil)

// NewS3 creates a store for the given bucket. region is used for the
// bucket location constraint when the bucket has to be created.
func NewS3(api S3API, bucket, region string) *S3 {
	return &S3{api: api, bucket: bucket, region: region}
}

// ensureBucket creates the bucket if absent. Racing cold starts are safe
// because bucket creation is idempotent on the service side.
func (s *S3) ensureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
		if err == nil {
			return
		}
		var notFound *s3types.NotFound
		if !errors.As(err, &notFound) {
			s.ensureErr = fmt.Errorf("head bucket %s: %w", s.bucket, err)
			return
		}
		in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
		// us-east-1 rejects an explicit location constraint.
		if s.region != "us-east-1" {
			in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(s.region),
			}
		}
		if _, err := s.api.CreateBucket(ctx, in); err != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if errors.As(err, &owned) {
				return
			}
			s.ensureErr = fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	})
	return s.ensureErr
}

func (s *S3) Save(ctx context.Context, id, content string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrStorageWrite, err)
	}
	key := Key(id)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(yamlContentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %v", apperr.ErrStorageWrite, s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3) Fetch(ctx context.Context, id string) (string, bool, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(id)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s: %w", s.bucket, Key(id), err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("read %s/%s: %w", s.bucket, Key(id), err)
	}
	return string(data), true, nil
}

func (s *S3) Delete(ctx context.Context, id string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, Key(id), err)
	}
	return nil
}
