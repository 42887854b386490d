package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/utils"
)

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key objects. The SDK client is built on first
// use so runs without S3 URLs never load AWS configuration.
type S3Fetcher struct {
	profile string
	once    sync.Once
	client  S3API
	initErr error
}

func NewS3Fetcher(profile string) *S3Fetcher {
	return &S3Fetcher{profile: profile}
}

// NewS3FetcherWithClient uses client as-is.
func NewS3FetcherWithClient(client S3API) *S3Fetcher {
	f := &S3Fetcher{client: client}
	f.once.Do(func() {})
	return f
}

func (f *S3Fetcher) getClient(ctx context.Context) (S3API, error) {
	f.once.Do(func() {
		opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
		if f.profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(f.profile))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			f.initErr = fmt.Errorf("error loading AWS config: %w", err)
			return
		}
		f.client = s3.NewFromConfig(cfg)
	})
	return f.client, f.initErr
}

func (f *S3Fetcher) Fetch(ctx context.Context, link, dest string, progress utils.ProgressFunc) error {
	bucket, key, err := ParseS3URL(link)
	if err != nil {
		return &FetchError{URL: link, ErrKind: utils.KindConfig, Err: err}
	}
	client, err := f.getClient(ctx)
	if err != nil {
		return &FetchError{URL: link, ErrKind: utils.KindConfig, Err: err}
	}
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 300 {
			return &FetchError{URL: link, ErrKind: utils.KindHTTPStatus, StatusCode: respErr.HTTPStatusCode(), Err: err}
		}
		return transientError(ctx, link, fmt.Errorf("error getting object: %w", err))
	}
	defer result.Body.Close()
	var size int64 = -1
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	log.Debug().Str("op", "fetch/s3").Str("bucket", bucket).Str("key", key).Int64("size", size).Msg("Streaming object")
	return streamToFile(ctx, link, result.Body, size, dest, progress)
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(link string) (string, string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %w", err)
	}
	if parsed.Scheme != "s3" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URL format: %s", link)
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("S3 URL must name an object, not a prefix: %s", link)
	}
	return parsed.Host, key, nil
}
