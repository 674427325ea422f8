package storage

import (
	"context"
	"fmt"
	"mime"
	"strings"
)

// CacheControl is set on every cloud object; uploads are immutable.
const CacheControl = "public, max-age=31536000"

// ObjectStore is the subset of a cloud bucket the cloud backend needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	Delete(ctx context.Context, key string) error
	Size(ctx context.Context, key string) (int64, error)
}

// CloudBackend stores uploads as publicly readable objects at deterministic
// keys {category}/{filename}; re-uploading the same name replaces the object.
type CloudBackend struct {
	bucket string
	store  ObjectStore
}

func NewCloudBackend(bucket string, store ObjectStore) *CloudBackend {
	return &CloudBackend{bucket: bucket, store: store}
}

func (c *CloudBackend) Name() string { return "cloud" }

func (c *CloudBackend) Configured() bool { return c.bucket != "" && c.store != nil }

func (c *CloudBackend) Owns(url string) bool {
	_, ok := c.keyFor(url)
	return ok
}

func (c *CloudBackend) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucket, key)
}

func (c *CloudBackend) Upload(ctx context.Context, category Category, data []byte, filename string) (string, error) {
	if len(data) > MaxUploadSize {
		return "", &StorageError{Op: "upload", Backend: c.Name(), Err: ErrTooLarge}
	}
	base, ext, err := sanitizeFilename(filename)
	if err != nil {
		return "", &StorageError{Op: "upload", Backend: c.Name(), Err: err}
	}

	key := string(category) + "/" + base + ext
	if err := c.store.Put(ctx, key, data, contentTypeFor(ext), CacheControl); err != nil {
		return "", &StorageError{Op: "put", Backend: c.Name(), Err: err}
	}
	return c.URL(key), nil
}

func (c *CloudBackend) Delete(ctx context.Context, url string) error {
	key, ok := c.keyFor(url)
	if !ok {
		return &StorageError{Op: "delete", Backend: c.Name(), Err: ErrNotOwned}
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Backend: c.Name(), Err: err}
	}
	return nil
}

func (c *CloudBackend) Size(ctx context.Context, url string) (int64, error) {
	key, ok := c.keyFor(url)
	if !ok {
		return 0, &StorageError{Op: "stat", Backend: c.Name(), Err: ErrNotOwned}
	}
	n, err := c.store.Size(ctx, key)
	if err != nil {
		return 0, &StorageError{Op: "stat", Backend: c.Name(), Err: err}
	}
	return n, nil
}

func (c *CloudBackend) keyFor(url string) (string, bool) {
	if c.bucket == "" {
		return "", false
	}
	key, ok := strings.CutPrefix(url, c.URL(""))
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

func contentTypeFor(ext string) string {
	if ext == ".pdf" {
		return "application/pdf"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
