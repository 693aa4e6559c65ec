package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the narrow surface the pipeline needs from object storage.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	// URL returns the public URL a reader would fetch the key from.
	URL(key string) string
}

const (
	uploadAttempts = 3
	retryDelay     = 2 * time.Second
)

// S3 implements ObjectStore against one AWS S3 bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 builds the client from the SDK's default credential/region chain.
func NewS3(ctx context.Context, bucket, baseURL string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return &S3{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload puts body at key, retrying transient failures a bounded number of
// times. A final failure is fatal to the caller's operation.
func (s *S3) Upload(ctx context.Context, key string, body []byte) error {
	var err error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		if attempt > 1 {
			log.Warnf("retrying upload of %s (attempt %d): %v", key, attempt, err)
			time.Sleep(retryDelay)
		}
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentTypeFor(key)),
		})
		if err == nil {
			log.Debugf("uploaded s3://%s/%s", s.bucket, key)
			return nil
		}
	}
	return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
}

func (s *S3) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("copy s3://%s/%s -> %s: %w", s.bucket, srcKey, dstKey, err)
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// List returns every key under prefix.
func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

func (s *S3) URL(key string) string {
	return s.baseURL + "/" + key
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".ts"):
		return "video/mp2t"
	case strings.HasSuffix(key, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
