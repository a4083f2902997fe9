package client

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/windfall/drill_service/internal/errors"
)

// StorageClient stores generated media in a Google Cloud Storage bucket.
type StorageClient struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewStorageClient creates a new storage client. credentialsFile may be
// empty to use application default credentials.
func NewStorageClient(ctx context.Context, bucketName, credentialsFile, prefix string) (*StorageClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &StorageClient{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
	}, nil
}

// Close closes the client.
func (c *StorageClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Put writes data under name and returns the public HTTPS URL.
func (c *StorageClient) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectName := c.prefix + name
	w := c.client.Bucket(c.bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", errors.Storage("failed to write gcs object", err)
	}
	if err := w.Close(); err != nil {
		return "", errors.Storage("failed to finalize gcs object", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}
