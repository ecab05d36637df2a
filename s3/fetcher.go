// Package s3 provides a remote.Fetcher backed by S3 ranged GetObject calls.
// It works against AWS S3 and S3-compatible stores such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/meigma/binfile/remote"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("s3: object not found")

// API is the subset of the S3 client used by Fetcher. *s3.Client satisfies it.
type API interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// Config holds connection settings for NewClient.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient builds an S3 client. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain applies. A non-empty
// Endpoint switches to path-style addressing for MinIO and friends.
func NewClient(ctx context.Context, cfg Config) (*awss3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Fetcher implements remote.Fetcher over one S3 object.
// It is safe for concurrent use.
type Fetcher struct {
	api        API
	bucket     string
	key        string
	size       int64
	etag       string
	pinETag    bool
	logger     *slog.Logger
	sourceOpts []remote.Option
}

// NewFetcher creates a Fetcher for bucket/key and learns its size with HeadObject.
func NewFetcher(ctx context.Context, api API, bucket, key string, opts ...Option) (*Fetcher, error) {
	if api == nil {
		return nil, errors.New("s3: api is nil")
	}
	f := &Fetcher{api: api, bucket: bucket, key: key}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	f.logger = f.logger.With(slog.String("bucket", bucket), slog.String("key", key))

	out, err := api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError("head object", err)
	}
	if out.ContentLength == nil || *out.ContentLength < 0 {
		return nil, fmt.Errorf("s3: head object %s/%s: size unknown", bucket, key)
	}
	f.size = *out.ContentLength
	f.etag = aws.ToString(out.ETag)
	f.logger.Debug("probed object", slog.Int64("size", f.size))
	return f, nil
}

// Open probes bucket/key and returns a remote.Source reading from it.
func Open(ctx context.Context, api API, bucket, key string, opts ...Option) (*remote.Source, error) {
	f, err := NewFetcher(ctx, api, bucket, key, opts...)
	if err != nil {
		return nil, err
	}
	srcOpts := append([]remote.Option{remote.WithLogger(f.logger)}, f.sourceOpts...)
	return remote.New(f, f.size, srcOpts...)
}

// Size returns the object size in bytes.
func (f *Fetcher) Size() int64 {
	return f.size
}

// ETag returns the entity tag reported by HeadObject, if any.
func (f *Fetcher) ETag() string {
	return f.etag
}

// Fetch issues one ranged GetObject. The end of the range may lie past the
// object; S3 clamps it.
func (f *Fetcher) Fetch(ctx context.Context, req remote.Request) (*remote.Response, error) {
	if req.Unit != "" && req.Unit != remote.UnitBytes {
		return nil, fmt.Errorf("s3: unsupported range unit %q", req.Unit)
	}
	in := &awss3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", req.Range.Start, req.Range.End)),
	}
	if f.pinETag && f.etag != "" {
		in.IfMatch = aws.String(f.etag)
	}
	out, err := f.api.GetObject(ctx, in)
	if err != nil {
		return nil, mapError("get object", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, req.Range.Len()))
	if err != nil {
		return nil, fmt.Errorf("s3: read body: %w", err)
	}
	return &remote.Response{Data: data}, nil
}

func mapError(op string, err error) error {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	// some S3-compatible stores only surface a bare 404
	if strings.Contains(err.Error(), "StatusCode: 404") {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("s3: %s: %w", op, err)
}

var _ remote.Fetcher = (*Fetcher)(nil)
