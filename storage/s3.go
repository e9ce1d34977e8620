package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3Client is the slice of the SDK client the store needs, kept narrow so
// tests can fake it.
type s3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config selects the destination bucket. Credentials come from the standard
// AWS config chain.
type Config struct {
	Bucket string
	Prefix string
	Region string
}

// S3Store uploads finished video artifacts to S3.
type S3Store struct {
	client s3Client
	bucket string
	prefix string
	region string
}

// NewS3Store creates an artifact store using the default AWS configuration
// chain, with an optional region override.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: awsCfg.Region,
	}, nil
}

// Upload stores the artifact and returns its object URL. Implements the
// processor's delivery interface.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := path.Join(s.prefix, key)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}

	url := s.objectURL(fullKey)
	log.Printf("artifact uploaded: %s", url)
	return url, nil
}

// Exists reports whether an artifact was already delivered, so redelivered
// requests can skip re-encoding.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := path.Join(s.prefix, key)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}

	return false, err
}

// ObjectURL returns the URL an artifact uploaded under key resolves to.
func (s *S3Store) ObjectURL(key string) string {
	return s.objectURL(path.Join(s.prefix, key))
}

func (s *S3Store) objectURL(key string) string {
	if s.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
