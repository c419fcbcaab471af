// Package storage provides the S3-compatible implementation of the Store
// interface (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	appconfig "github.com/evidencecheck/attest/internal/config"
)

// S3Store implements Store against an S3-compatible endpoint.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	endpoint  string
}

// NewS3Store creates and verifies an S3 client from configuration.
func NewS3Store(ctx context.Context, cfg *appconfig.StorageConfig) (*S3Store, error) {
	endpointURL := endpointURL(cfg.Endpoint, cfg.UseSSL)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
		// Path-style addressing is required for R2 and MinIO custom endpoints.
		o.UsePathStyle = true
	})

	store := &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		endpoint:  endpointURL,
	}

	// Verify connectivity up front rather than on the first submission.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HeadBucket(pingCtx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Bucket).
			Msg("S3 bucket check failed; uploads may fail until the bucket exists")
	}

	log.Info().Str("endpoint", endpointURL).Str("bucket", cfg.Bucket).
		Msg("Connected to S3-compatible storage")

	return store, nil
}

// Put uploads the object and returns its public URL and storage key.
func (s *S3Store) Put(ctx context.Context, data []byte, suggestedName string, metadata map[string]string) (string, string, error) {
	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006/01/02"), suggestedName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
		Metadata:    metadata,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return s.objectURL(key), key, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}

// endpointURL constructs the full endpoint URL from a bare host.
func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}
