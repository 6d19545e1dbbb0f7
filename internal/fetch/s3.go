package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidS3Locator is returned when an s3:// locator lacks a bucket or key.
var ErrInvalidS3Locator = errors.New("fetch: invalid s3 locator, want s3://bucket/key")

// S3Config holds the configuration for S3 sources.
type S3Config struct {
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// Compile-time check that S3Fetcher implements Fetcher.
var _ Fetcher = (*S3Fetcher)(nil)

// S3Fetcher downloads videos stored as S3 objects.
type S3Fetcher struct {
	client   *s3.Client
	maxBytes int64
}

// NewS3Fetcher creates a new S3Fetcher. maxBytes caps the object size; zero
// disables the cap.
func NewS3Fetcher(ctx context.Context, cfg S3Config, maxBytes int64) (*S3Fetcher, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Fetcher{
		client:   s3.NewFromConfig(awsCfg, clientOpts...),
		maxBytes: maxBytes,
	}, nil
}

// Fetch downloads the object named by an s3://bucket/key locator to dest.
func (f *S3Fetcher) Fetch(ctx context.Context, locator, dest string) error {
	bucket, key, err := ParseS3Locator(locator)
	if err != nil {
		return err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3 object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	if f.maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > f.maxBytes {
		return fmt.Errorf("%w: object size %d", ErrTooLarge, *out.ContentLength)
	}

	return copyLimited(ctx, out.Body, dest, f.maxBytes)
}

// ParseS3Locator splits s3://bucket/key into its parts.
func ParseS3Locator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidS3Locator, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", ErrInvalidS3Locator
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", ErrInvalidS3Locator
	}
	return u.Host, key, nil
}
