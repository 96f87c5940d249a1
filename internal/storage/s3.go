// Package storage wraps the S3 object store: archive publishing and the
// account-file fetch. The client is constructed once by the CLI layer and
// injected wherever it is needed.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrUpload reports a transport or auth failure while publishing an archive.
// Fatal for that archive, not for the run.
var ErrUpload = errors.New("storage: upload failed")

// Uploader publishes one blob with descriptive metadata.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, metadata map[string]string) error
}

// Fetcher reads one blob.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client implements Uploader and Fetcher against S3.
type Client struct {
	api s3API
}

func New(ctx context.Context, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{api: s3.NewFromConfig(cfg)}, nil
}

func (c *Client) Upload(ctx context.Context, bucket, key string, body io.Reader, metadata map[string]string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("%w: s3://%s/%s: %v", ErrUpload, bucket, key, err)
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
