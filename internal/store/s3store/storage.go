// Package s3store implements store.Backend over an S3-compatible object
// store using the AWS SDK v2.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/prn-tf/chunkvault/internal/store"
)

// Config holds the S3-compatible backend's connection settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // set for S3-compatible services (MinIO, localstack)
	AccessKey string
	SecretKey string
}

// Storage is a store.Backend backed by S3 or an S3-compatible endpoint.
type Storage struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// New creates a Storage wrapping an existing S3 client.
func New(client *s3.Client, bucket string, logger zerolog.Logger) *Storage {
	return &Storage{client: client, bucket: bucket, logger: logger}
}

// NewFromConfig builds an S3 client from cfg and returns a ready Storage.
// When cfg.Endpoint is set, the client targets that endpoint with
// path-style addressing, matching the MinIO/localstack-compatible setup
// the pack's dittofs tests use.
func NewFromConfig(ctx context.Context, cfg Config, logger zerolog.Logger) (*Storage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("s3store initialized")
	return New(client, cfg.Bucket, logger), nil
}

// Put writes data as the full object body at key.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3store: put object %s: %w", key, err)
	}
	return nil
}

// Get returns the full object body at key.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrBackendNotFound, key)
		}
		return nil, fmt.Errorf("s3store: get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read object body %s: %w", key, err)
	}
	return data, nil
}

// GetReader streams the object body at key without materializing it.
func (s *Storage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrBackendNotFound, key)
		}
		return nil, fmt.Errorf("s3store: get object %s: %w", key, err)
	}
	return resp.Body, nil
}

// Head distinguishes an absent key from other failures via HeadObject.
func (s *Storage) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundError(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3store: head object %s: %w", key, err)
}

// Delete removes key. A missing key is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete object %s: %w", key, err)
	}
	return nil
}

// List calls fn with every key under prefix, paging through the bucket
// listing.
func (s *Storage) List(ctx context.Context, prefix string, fn func(key string) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3store: list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteBatch removes multiple keys in a single DeleteObjects call (up to
// 1000 keys per AWS's limit), used by the GC sweep for bulk efficiency
// beyond one-at-a-time Delete calls.
func (s *Storage) DeleteBatch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		objects[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("s3store: batch delete objects: %w", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *Storage) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3store: health check: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var nb *types.NotFound
	if errors.As(err, &nb) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

var _ store.Backend = (*Storage)(nil)
var _ store.ReadCloserBackend = (*Storage)(nil)
var _ store.BatchDeleter = (*Storage)(nil)
