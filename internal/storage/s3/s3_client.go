package s3

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gstpipeline/internal/config"
	"gstpipeline/internal/port"
)

type s3Client struct {
	client       *s3.Client
	presigner    *s3.PresignClient
	uploader     *manager.Uploader
	maxRetries   int
	retryDeadline time.Duration
}

// NewS3Client creates a new S3-backed ObjectStorage implementation for the
// pipeline's normalized-CSV, batch-CSV, X2Beta, and input-snapshot artifacts.
func NewS3Client(cfg *config.S3Config) (port.ObjectStorage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &s3Client{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		uploader:      manager.NewUploader(client),
		maxRetries:    maxRetries,
		retryDeadline: 30 * time.Second,
	}, nil
}

// withRetry runs fn, and on failure retries it once more within a bounded
// deadline.
func (c *s3Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.retryDeadline)
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt < c.maxRetries {
			log.Printf("s3: %s failed (attempt %d/%d): %v, retrying", op, attempt+1, c.maxRetries+1, lastErr)
		}
	}
	return lastErr
}

func (c *s3Client) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	var out *port.UploadOutput
	err := c.withRetry(ctx, "upload "+input.Key, func(ctx context.Context) error {
		result, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(input.Bucket),
			Key:         aws.String(input.Key),
			Body:        input.Body,
			ContentType: aws.String(input.ContentType),
		})
		if err != nil {
			return fmt.Errorf("s3 upload: %w", err)
		}
		etag := ""
		if result.ETag != nil {
			etag = *result.ETag
		}
		out = &port.UploadOutput{Location: result.Location, ETag: etag}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *s3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, "download "+key, func(ctx context.Context) error {
		result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("s3 download: %w", err)
		}
		defer result.Body.Close()

		body, err := io.ReadAll(result.Body)
		if err != nil {
			return fmt.Errorf("s3 download read: %w", err)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *s3Client) Delete(ctx context.Context, bucket, key string) error {
	return c.withRetry(ctx, "delete "+key, func(ctx context.Context) error {
		_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("s3 delete: %w", err)
		}
		return nil
	})
}

func (c *s3Client) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Duration(expirySeconds)*time.Second))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return result.URL, nil
}
