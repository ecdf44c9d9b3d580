package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/Inventory/internal/config"
)

// ObjectAPI is the subset of the S3 client S3Store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps images in an S3 bucket. It works with AWS and with
// S3-compatible servers such as MinIO when an endpoint is configured.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	baseURL, err := objectBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("s3 image store ready", "bucket", cfg.S3Bucket, "region", cfg.S3Region, "prefix", cfg.S3Prefix)
	return NewS3StoreWithClient(client, cfg.S3Bucket, cfg.S3Prefix, baseURL), nil
}

// NewS3StoreWithClient wraps an existing client. baseURL is prepended to
// object keys to form returned image URLs.
func NewS3StoreWithClient(client ObjectAPI, bucket, prefix, baseURL string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// objectBaseURL picks the public URL for stored objects: the configured
// override, else path-style on a custom endpoint, else the virtual-hosted
// AWS bucket URL.
func objectBaseURL(cfg config.StorageConfig) (string, error) {
	if cfg.S3PublicURL != "" {
		return cfg.S3PublicURL, nil
	}
	if cfg.S3Endpoint != "" {
		u, err := url.Parse(cfg.S3Endpoint)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("invalid storage endpoint %q", cfg.S3Endpoint)
		}
		if cfg.S3UsePathStyle {
			return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket, nil
		}
		return fmt.Sprintf("%s://%s.%s", u.Scheme, cfg.S3Bucket, u.Host), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region), nil
}

func (s *S3Store) key(name string) string {
	return s.prefix + name
}

// Save implements ImageStore.
func (s *S3Store) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", s.key(name), err)
	}
	return s.baseURL + "/" + s.key(name), nil
}
