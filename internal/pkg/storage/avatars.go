package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/affirmly/affirmly-backend/internal/pkg/env"
)

// AvatarStore wraps the S3 client for user avatar objects.
type AvatarStore struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewAvatarStoreFromEnv creates an avatar store from AVATAR_S3_* env vars.
// Returns nil when no bucket is configured, meaning avatars are disabled.
func NewAvatarStoreFromEnv(ctx context.Context) (*AvatarStore, error) {
	bucket := strings.TrimSpace(env.GetEnv("AVATAR_S3_BUCKET", ""))
	if bucket == "" {
		return nil, nil
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(env.GetEnv("AVATAR_S3_REGION", "us-east-1")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.GetEnv("AVATAR_S3_ACCESS_KEY_ID", ""),
			env.GetEnv("AVATAR_S3_SECRET_ACCESS_KEY", ""),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSpace(env.GetEnv("AVATAR_S3_ENDPOINT", ""))
	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// S3-compatible providers generally require path-style URLs.
			o.UsePathStyle = true
		}
	})

	return &AvatarStore{
		s3Client:  s3Client,
		bucket:    bucket,
		publicURL: strings.TrimRight(env.GetEnv("AVATAR_S3_PUBLIC_URL", ""), "/"),
	}, nil
}

// Upload stores an avatar object and returns its public URL.
func (s *AvatarStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("object key is required")
	}

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("avatar upload failed: %w", err)
	}
	return s.URLFor(key), nil
}

// Delete removes an avatar object. Missing objects are not an error.
func (s *AvatarStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("avatar delete failed: %w", err)
	}
	return nil
}

// URLFor returns the public URL for an avatar object key.
func (s *AvatarStore) URLFor(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// KeyFromURL extracts the object key from a previously issued avatar URL.
func (s *AvatarStore) KeyFromURL(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return ""
	}
	if s.publicURL != "" && strings.HasPrefix(u, s.publicURL+"/") {
		return strings.TrimPrefix(u, s.publicURL+"/")
	}
	prefix := fmt.Sprintf("https://%s.s3.amazonaws.com/", s.bucket)
	return strings.TrimPrefix(u, prefix)
}
