package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrUpload wraps every failed object write.
var ErrUpload = errors.New("blob upload failed")

// File is one in-memory upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Config describes the bucket and how to reach it.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty means AWS; set for MinIO and other S3-compatible stores
	AccessKey string
	SecretKey string

	// PublicBaseURL prefixes returned object URLs. Derived from Endpoint or
	// the AWS virtual-host form when empty.
	PublicBaseURL string
	Folder        string

	// MaxAttempts caps SDK retries per object. Zero keeps the SDK default.
	MaxAttempts int
	// Concurrency bounds parallel object writes. Zero means one per file.
	Concurrency int
}

// S3 uploads files to a bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	folder  string
	baseURL string
	limit   int
	now     func() time.Time
}

// NewS3 builds the SDK client once. Static credentials are used when both
// keys are set; otherwise the SDK default chain applies.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: bucket required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Folder == "" {
		cfg.Folder = "uploads"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.MaxAttempts))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		folder:  strings.Trim(cfg.Folder, "/"),
		baseURL: publicBaseURL(cfg),
		limit:   cfg.Concurrency,
		now:     time.Now,
	}, nil
}

func publicBaseURL(cfg Config) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Upload writes every file and returns their public URLs in input order.
// If any write fails the remaining ones are cancelled and no URLs are
// returned; objects already written are left in place.
func (s *S3) Upload(ctx context.Context, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	urls := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}

	for i, f := range files {
		key := s.objectKey(f)
		g.Go(func() error {
			_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(key),
				Body:          bytes.NewReader(f.Data),
				ContentLength: aws.Int64(int64(len(f.Data))),
				ContentType:   aws.String(contentType(f)),
			})
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrUpload, f.Name, err)
			}
			urls[i] = s.baseURL + "/" + key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// objectKey lays objects out as <folder>/<yyyy>/<mm>/<dd>/<uuid><ext>.
func (s *S3) objectKey(f File) string {
	d := s.now().UTC()
	name := uuid.NewString() + extension(f)
	return path.Join(s.folder, fmt.Sprintf("%04d/%02d/%02d", d.Year(), int(d.Month()), d.Day()), name)
}

func extension(f File) string {
	if ext := strings.ToLower(filepath.Ext(f.Name)); ext != "" {
		return ext
	}
	if f.ContentType != "" {
		if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ""
}

func contentType(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
