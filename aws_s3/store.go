// Package aws_s3 backs the store contract with an S3 bucket, using the AWS
// SDK v2 transfer manager for streamed uploads so large values never have to
// fit in memory.
package aws_s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/data-engineering-collective/minimalkv"
)

// DefaultPresignExpiry bounds the lifetime of generated object URLs.
const DefaultPresignExpiry = 15 * time.Minute

// Store adapts one bucket of an S3 client to the store contract.
type Store struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	region        string
	presignExpiry time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPresignExpiry sets the lifetime of URLs returned by URLFor.
func WithPresignExpiry(d time.Duration) Option {
	return func(s *Store) { s.presignExpiry = d }
}

// New returns a store over the named bucket. When createIfMissing is set the
// bucket is created in the client's region, tolerating a bucket that already
// exists under this account.
func New(ctx context.Context, client *s3.Client, bucket, region string, createIfMissing bool, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("client parameter can't be nil")
	}
	if bucket == "" {
		return nil, minimalkv.NewConfigParse("missing required option: bucket")
	}
	s := &Store{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        bucket,
		region:        region,
		presignExpiry: DefaultPresignExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if createIfMissing {
		if err := s.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 is the one region that must not be named explicitly.
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	_, err := s.client.CreateBucket(ctx, input)
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return minimalkv.NewBackendFailure("", fmt.Errorf("couldn't create bucket %s in region %s: %w", s.bucket, s.region, err))
	}
	return nil
}

// Bucket returns the bucket name the store operates on.
func (s *Store) Bucket() string {
	return s.bucket
}

// Delete removes the object at key; S3 deletes are idempotent, absent keys
// are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return minimalkv.NewBackendFailure(key, err)
	}
	return nil
}

// Open returns the object body stream; the caller must close it.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, minimalkv.NewKeyNotFound(key)
		}
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	return out.Body, nil
}

// PutReader uploads the stream through the transfer manager, which splits
// large content into concurrent multipart uploads.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return key, nil
}

// IterKeys pages through ListObjectsV2 results lazily.
func (s *Store) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		paginator := s3.NewListObjectsV2Paginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield("", minimalkv.NewBackendFailure("", err))
				return
			}
			for _, obj := range page.Contents {
				if !yield(aws.ToString(obj.Key), nil) {
					return
				}
			}
		}
	}
}

// Close is a no-op; the S3 client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

// HasKey probes with HeadObject instead of fetching the body.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, minimalkv.NewBackendFailure(key, err)
	}
	return true, nil
}

// Copy duplicates the object server-side with CopyObject. The SDK does not
// model NoSuchKey for this call, so a missing source is matched by service
// error code.
func (s *Store) Copy(ctx context.Context, source, dest string) (string, error) {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + source),
		Key:        aws.String(dest),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return "", minimalkv.NewKeyNotFound(source)
		}
		return "", minimalkv.NewBackendFailure(source, err)
	}
	return dest, nil
}

// URLFor returns a presigned GET URL for direct client access; it stops
// working once the key is deleted or the expiry passes.
func (s *Store) URLFor(ctx context.Context, key string) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return req.URL, nil
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
	_ minimalkv.Copier     = (*Store)(nil)
	_ minimalkv.URLer      = (*Store)(nil)
)
