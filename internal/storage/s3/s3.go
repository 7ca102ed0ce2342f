package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/eg-eng/logstash-input-s3/internal/storage"
)

type Client struct {
	bucket string
	region string
	api    *s3.Client
}

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible stores
	AccessKey string
	SecretKey string
}

func New(ctx context.Context, opt Options) (*Client, error) {
	if opt.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if opt.Region == "" && opt.Endpoint == "" {
		return nil, fmt.Errorf("s3: region or endpoint is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opt.Region),
	}
	if opt.AccessKey != "" || opt.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{bucket: opt.Bucket, region: opt.Region, api: api}, nil
}

func (c *Client) Bucket() string { return c.bucket }

// retry wraps one remote call in a bounded exponential backoff. The engine
// core never retries; transient object-store errors are absorbed here.
func retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func (c *Client) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	var out []storage.Object

	err := retry(ctx, func() error {
		out = out[:0]
		p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.bucket),
			Prefix: aws.String(prefix),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("list %q: %w", prefix, apiErr(err))
			}
			for _, obj := range page.Contents {
				out = append(out, storage.Object{
					Key:          aws.ToString(obj.Key),
					LastModified: aws.ToTime(obj.LastModified),
					Size:         aws.ToInt64(obj.Size),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := retry(ctx, func() error {
		rc, err := c.getObject(ctx, key)
		if err != nil {
			return err
		}
		defer rc.Close()

		data, err = io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ReadStream opens the object body without retry: a stream handed to the
// caller cannot be transparently reopened mid-read.
func (c *Client) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	return c.getObject(ctx, key)
}

func (c *Client) getObject(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, apiErr(err))
	}
	return resp.Body, nil
}

func (c *Client) Copy(ctx context.Context, key, destBucket, destKey string) error {
	return retry(ctx, func() error {
		_, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(destBucket),
			Key:        aws.String(destKey),
			CopySource: aws.String(url.PathEscape(c.bucket + "/" + key)),
		})
		if err != nil {
			return fmt.Errorf("copy %q to %s/%s: %w", key, destBucket, destKey, apiErr(err))
		}
		return nil
	})
}

func (c *Client) Move(ctx context.Context, key, destBucket, destKey string) error {
	if err := c.Copy(ctx, key, destBucket, destKey); err != nil {
		return err
	}
	return c.Delete(ctx, key)
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return retry(ctx, func() error {
		_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("delete %q: %w", key, apiErr(err))
		}
		return nil
	})
}

func (c *Client) BucketExists(ctx context.Context, name string) (bool, error) {
	exists := false
	err := retry(ctx, func() error {
		_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
		if err != nil {
			var nf *s3types.NotFound
			if errors.As(err, &nf) {
				exists = false
				return nil
			}
			return fmt.Errorf("head bucket %q: %w", name, apiErr(err))
		}
		exists = true
		return nil
	})
	return exists, err
}

func (c *Client) CreateBucket(ctx context.Context, name string) error {
	return retry(ctx, func() error {
		in := &s3.CreateBucketInput{Bucket: aws.String(name)}
		// us-east-1 rejects an explicit location constraint.
		if c.region != "" && c.region != "us-east-1" {
			in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(c.region),
			}
		}
		_, err := c.api.CreateBucket(ctx, in)
		if err != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if errors.As(err, &owned) {
				return nil
			}
			return fmt.Errorf("create bucket %q: %w", name, apiErr(err))
		}
		return nil
	})
}

// apiErr flattens smithy API errors into readable messages and marks the
// non-retryable ones permanent so retry() gives up immediately. Network-level
// failures stay retryable.
func apiErr(err error) error {
	var api smithy.APIError
	if !errors.As(err, &api) {
		return err
	}
	flat := fmt.Errorf("%s: %s", api.ErrorCode(), api.ErrorMessage())
	switch api.ErrorCode() {
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		return flat
	}
	return backoff.Permanent(flat)
}
