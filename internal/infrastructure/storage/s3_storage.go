// Package storage persists signature images and rendered contracts.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appquoting "github.com/erp/quoting/internal/application/quoting"
	infraconfig "github.com/erp/quoting/internal/infrastructure/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ appquoting.FileStorage = (*S3FileStorage)(nil)

// S3FileStorage implements appquoting.FileStorage on any S3-compatible
// store (AWS S3, MinIO, RustFS).
type S3FileStorage struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3FileStorageOption is a functional option for configuring S3FileStorage
type S3FileStorageOption func(*S3FileStorage)

// WithLogger sets a custom logger for S3FileStorage
func WithLogger(logger *zap.Logger) S3FileStorageOption {
	return func(s *S3FileStorage) {
		s.logger = logger
	}
}

// WithClient replaces the S3 client built from configuration
func WithClient(client *s3.Client) S3FileStorageOption {
	return func(s *S3FileStorage) {
		s.client = client
	}
}

// NewS3FileStorage creates an S3FileStorage from configuration.
// Without static keys the default AWS credential chain is used.
func NewS3FileStorage(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3FileStorageOption) (*S3FileStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	s := &S3FileStorage{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3FileStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store uploads data under <prefix>/<owner>/<uuid><ext> and returns the key,
// which serves as the file ID
func (s *S3FileStorage) Store(ctx context.Context, name, mimeType string, data []byte, ownerID uuid.UUID) (string, error) {
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}
	contentType, ext := detectType(name, mimeType, data)
	key := path.Join(s.keyPrefix, ownerID.String(), uuid.NewString()+ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": path.Base(name)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	s.logger.Debug("Stored file",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)))
	return key, nil
}

// Delete removes a stored file
func (s *S3FileStorage) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return errors.New("file ID is required")
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3FileStorage) Bucket() string {
	return s.bucket
}

// detectType prefers the declared MIME type and falls back to sniffing the content
func detectType(name, declared string, data []byte) (string, string) {
	detected := mimetype.Detect(data)
	contentType := detected.String()
	if declared != "" && mimetype.Lookup(declared) != nil {
		contentType = declared
	}

	ext := path.Ext(name)
	if ext == "" {
		ext = detected.Extension()
	}
	return contentType, strings.ToLower(ext)
}
