package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"powerplot/internal/config"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// PutObjectAPI is the part of *s3.Client the publisher needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads run artifacts under <prefix>/<run-id>/<name>
type S3Publisher struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	retries int
	// wait blocks for the backoff delay or until ctx ends
	wait func(ctx context.Context, d time.Duration) error
}

// NewS3Client loads the default AWS credential chain for region.
// Retries are left to the publisher, so the SDK's own retryer is disabled.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	}), nil
}

// NewS3Publisher creates a publisher from the publish config section
func NewS3Publisher(client PutObjectAPI, cfg config.PublishConfig) (*S3Publisher, error) {
	if client == nil {
		return nil, errors.New("nil S3 client")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("publish bucket is required")
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid publish timeout %q", cfg.Timeout)
	}
	if cfg.Retries < 1 {
		return nil, fmt.Errorf("publish retries must be >= 1, got %d", cfg.Retries)
	}
	return &S3Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: timeout,
		retries: cfg.Retries,
		wait:    sleepCtx,
	}, nil
}

// Key returns the object key for a file of a run
func (p *S3Publisher) Key(runID, file string) string {
	return path.Join(p.prefix, runID, filepath.Base(file))
}

// Publish uploads every file and returns the keys written. It stops at the first failed upload.
func (p *S3Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return keys, fmt.Errorf("failed to read artifact: %w", err)
		}
		key := p.Key(runID, file)
		if err := p.UploadBytesWithRetry(ctx, key, body); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		log.Info().Str("bucket", p.bucket).Str("key", key).Int("bytes", len(body)).Msg("published artifact")
		keys = append(keys, key)
	}
	return keys, nil
}

// UploadBytesWithRetry puts body at key, retrying with exponential backoff capped at 2s.
// It returns the last upload error once the retries are spent.
func (p *S3Publisher) UploadBytesWithRetry(ctx context.Context, key string, body []byte) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= p.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.putObject(ctx, key, body)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Str("key", key).Int("attempt", attempt).Msg("upload failed")

		if attempt == p.retries {
			break
		}
		if err := p.wait(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return lastErr
}

func (p *S3Publisher) putObject(ctx context.Context, key string, body []byte) error {
	ctx2, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if ct := contentType(key); ct != "" {
		input.ContentType = aws.String(ct)
	}
	_, err := p.client.PutObject(ctx2, input)
	return err
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".gz") {
		return "application/gzip"
	}
	return mime.TypeByExtension(path.Ext(key))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
