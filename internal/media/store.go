// Package media persists generated audio and images and sweeps old files.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/windfall/drill_service/internal/errors"
)

// Content types written by the service.
const (
	ContentTypeMP3 = "audio/mpeg"
	ContentTypePNG = "image/png"
)

// Store saves a named blob and returns a URL clients can fetch it from.
// client.CloudflareClient and client.StorageClient satisfy it as well.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalStore writes into one flat directory served under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes data as dir/name. Path separators in name are dropped so
// every file stays in the flat directory.
func (s *LocalStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", errors.Validation("invalid media file name")
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.Storage("failed to write media file", err)
	}
	return s.baseURL + "/" + name, nil
}

// ImageRenderer produces raw image bytes, e.g. client.GeminiClient.
type ImageRenderer interface {
	GenerateImageBytes(ctx context.Context, prompt, aspectRatio string) ([]byte, error)
}

// StoredImageGenerator renders an image and publishes it through a Store,
// turning a bytes-only provider into a URL-returning one.
type StoredImageGenerator struct {
	renderer ImageRenderer
	store    Store
}

// NewStoredImageGenerator wires a renderer to a store.
func NewStoredImageGenerator(renderer ImageRenderer, store Store) *StoredImageGenerator {
	return &StoredImageGenerator{renderer: renderer, store: store}
}

// GenerateImage renders a square image; size and quality are fixed by the renderer.
func (g *StoredImageGenerator) GenerateImage(ctx context.Context, prompt, _, _ string) (string, error) {
	data, err := g.renderer.GenerateImageBytes(ctx, prompt, "1:1")
	if err != nil {
		return "", err
	}
	return g.store.Put(ctx, "image_"+uuid.NewString()+".png", data, ContentTypePNG)
}
