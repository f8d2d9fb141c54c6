package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Service stores cover images in Amazon S3 (or compatible APIs).
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	keyPrefix string
}

func NewS3Service(client *s3.Client, bucket, keyPrefix string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *S3Service) Upload(ctx context.Context, input UploadInput) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	key := strings.TrimPrefix(input.Key, "/")
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   input.Body,
	}
	if input.ContentType != "" {
		putInput.ContentType = aws.String(input.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, putInput); err != nil {
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}
	return key, nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) PresignURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return req.URL, nil
}
