// Package s3 provides a keyed Source over the objects of an S3-compatible bucket
// (AWS S3, MinIO). Object contents are fetched only when taken.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/sluice/pkg/ports"
)

// API is the subset of *s3.Client the source uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds explicit construction parameters. Credentials come from the default chain.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// Source yields one *Object per listed key, in key order.
type Source struct {
	client   API
	bucket   string
	prefix   string
	patterns []string
	pageSize int32
	logger   *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithPrefix restricts listing to keys under prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) { s.prefix = prefix }
}

// WithGlob keeps only keys matching one of the doublestar patterns.
func WithGlob(patterns ...string) Option {
	return func(s *Source) { s.patterns = append(s.patterns, patterns...) }
}

// WithPageSize sets the maximum number of keys per list request.
func WithPageSize(n int32) Option {
	return func(s *Source) { s.pageSize = n }
}

// WithLogger sets the logger used for listing progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewWithClient creates a Source over bucket using an existing client.
func NewWithClient(client API, bucket string, opts ...Option) *Source {
	s := &Source{
		client: client,
		bucket: bucket,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Source from Config.
func New(ctx context.Context, cfg Config, opts ...Option) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	return NewWithClient(client, cfg.Bucket, opts...), nil
}

// ConfigFromEnv reads SLUICE_S3_BUCKET (required), SLUICE_S3_REGION, SLUICE_S3_PREFIX,
// SLUICE_S3_ENDPOINT and SLUICE_S3_PATH_STYLE.
func ConfigFromEnv() (Config, error) {
	bucket := os.Getenv("SLUICE_S3_BUCKET")
	if bucket == "" {
		return Config{}, fmt.Errorf("SLUICE_S3_BUCKET required for s3 source")
	}
	return Config{
		Bucket:    bucket,
		Region:    os.Getenv("SLUICE_S3_REGION"),
		Prefix:    os.Getenv("SLUICE_S3_PREFIX"),
		Endpoint:  os.Getenv("SLUICE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("SLUICE_S3_PATH_STYLE"), "true"),
	}, nil
}

// OpenFromEnv constructs a Source from process environment.
func OpenFromEnv(ctx context.Context, opts ...Option) (*Source, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

func (s *Source) Capability() ports.Capability { return ports.Keyed }

// EachKeyed lists the bucket page by page and yields (key, *Object) pairs.
func (s *Source) EachKeyed(ctx context.Context, fn func(key any, record any) error) error {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix)
	}
	p := s3.NewListObjectsV2Paginator(s.client, in, func(o *s3.ListObjectsV2PaginatorOptions) {
		if s.pageSize > 0 {
			o.Limit = s.pageSize
		}
	})
	for page := 0; p.HasMorePages(); page++ {
		out, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		s.logger.Debug("listed objects", "bucket", s.bucket, "page", page, "count", len(out.Contents))
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			ok, err := s.match(key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			rec := &Object{
				client:       s.client,
				bucket:       s.bucket,
				key:          key,
				size:         aws.ToInt64(obj.Size),
				etag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				lastModified: aws.ToTime(obj.LastModified),
			}
			if err := fn(key, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Source) match(key string) (bool, error) {
	if len(s.patterns) == 0 {
		return true, nil
	}
	for _, pattern := range s.patterns {
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return false, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
