package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pageza/macrotrack/backend/config"
)

// MaxPhotoBytes caps an uploaded profile photo.
const MaxPhotoBytes = 2 << 20

// PhotoStore keeps profile photos outside the database.
type PhotoStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// S3PhotoStore stores photos in a private bucket and serves them through presigned URLs.
type S3PhotoStore struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

var _ PhotoStore = (*S3PhotoStore)(nil)

// NewS3PhotoStore initializes the S3 client from the default AWS credential chain.
func NewS3PhotoStore(ctx context.Context, cfg config.StorageConfig) (*S3PhotoStore, error) {
	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and LocalStack need path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3PhotoStore{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		presignTTL: cfg.PresignTTL,
	}, nil
}

func (s *S3PhotoStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload photo to S3: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete photo from S3: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) URL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign photo URL: %w", err)
	}
	return req.URL, nil
}

// PhotoKey builds a fresh object key under the user's prefix.
func PhotoKey(userID uuid.UUID, ext string) string {
	return fmt.Sprintf("profile-photos/%s/%s%s", userID, uuid.NewString(), ext)
}

// DetectImage sniffs the payload and accepts only JPEG and PNG.
func DetectImage(data []byte) (contentType, ext string, ok bool) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "image/jpeg", ".jpg", true
	case "image/png":
		return "image/png", ".png", true
	default:
		return "", "", false
	}
}
