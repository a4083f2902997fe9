package client

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/windfall/drill_service/internal/errors"
)

// CloudflareClient stores generated media in Cloudflare R2 over the S3 API.
type CloudflareClient struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
	prefix    string
}

// NewCloudflareClient creates a new Cloudflare R2 client. Objects are keyed
// under prefix (e.g. "audio/").
func NewCloudflareClient(ctx context.Context, accessKeyID, secretKey, endpoint, bucketName, publicURL, prefix string) (*CloudflareClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &CloudflareClient{
		s3Client:  s3Client,
		bucket:    bucketName,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		prefix:    prefix,
	}, nil
}

// Put uploads data under name and returns its public URL.
func (c *CloudflareClient) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := c.prefix + name
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Storage("failed to upload to R2", err)
	}
	return fmt.Sprintf("%s/%s", c.publicURL, key), nil
}
