// Package publish uploads the universe snapshot to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// uploader is the part of manager.Uploader the publisher needs
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads files to a single bucket/key
type S3Publisher struct {
	uploader uploader
	bucket   string
	key      string
	log      zerolog.Logger
}

// NewS3Publisher builds a publisher from the publish settings.
// A custom endpoint (R2, MinIO) switches the client to path-style addressing.
func NewS3Publisher(ctx context.Context, cfg config.PublishConfig, log zerolog.Logger) (*S3Publisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("publishing is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Publisher{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		log:      log.With().Str("component", "publisher").Logger(),
	}, nil
}

// Target returns the object URL the publisher writes to
func (p *S3Publisher) Target() string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, p.key)
}

// Publish uploads the file at path and returns the object URL
func (p *S3Publisher) Publish(ctx context.Context, path string) (string, error) {
	startTime := time.Now()

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/json"),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to %s: %w", p.Target(), err)
	}

	p.log.Info().
		Str("target", p.Target()).
		Int64("size_bytes", info.Size()).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Universe published")

	return p.Target(), nil
}
