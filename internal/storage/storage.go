// Package storage persists uploaded files on the local file system or in a
// cloud object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/observability"
)

// MaxUploadSize is the largest buffer accepted by Upload.
const MaxUploadSize = 50 << 20

// Category is the top-level folder an upload is filed under.
type Category string

const (
	CategoryProducts   Category = "products"
	CategoryInvoices   Category = "invoices"
	CategoryDatasheets Category = "datasheets"
	CategoryReviews    Category = "reviews"
	CategoryModels     Category = "models"
)

var categories = map[Category]bool{
	CategoryProducts:   true,
	CategoryInvoices:   true,
	CategoryDatasheets: true,
	CategoryReviews:    true,
	CategoryModels:     true,
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !categories[c] {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

var (
	ErrNotConfigured   = errors.New("no storage backend configured")
	ErrInvalidCategory = errors.New("invalid upload category")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrNotOwned        = errors.New("url does not belong to this backend")
)

// StorageError wraps a failed storage operation.
type StorageError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Backend is one place uploads can live.
type Backend interface {
	Name() string
	Configured() bool
	// Owns reports whether url was produced by this backend.
	Owns(url string) bool
	Upload(ctx context.Context, category Category, data []byte, filename string) (string, error)
	Delete(ctx context.Context, url string) error
	Size(ctx context.Context, url string) (int64, error)
}

// Uploader picks the first configured backend on every call; the local
// backend comes first when both are configured.
type Uploader struct {
	backends []Backend
	logger   *zap.Logger
	metrics  *observability.Metrics
}

type UploaderOption func(*Uploader)

func WithLogger(logger *zap.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = observability.OrNop(logger) }
}

func WithMetrics(m *observability.Metrics) UploaderOption {
	return func(u *Uploader) { u.metrics = m }
}

func NewUploader(backends []Backend, opts ...UploaderOption) *Uploader {
	u := &Uploader{backends: backends, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Uploader) active() (Backend, bool) {
	for _, b := range u.backends {
		if b.Configured() {
			return b, true
		}
	}
	return nil, false
}

// Upload stores data under category and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, category string, data []byte, filename string) (string, error) {
	cat, err := ParseCategory(category)
	if err != nil {
		return "", &StorageError{Op: "upload", Err: err}
	}
	if len(data) > MaxUploadSize {
		return "", &StorageError{Op: "upload", Err: ErrTooLarge}
	}

	b, ok := u.active()
	if !ok {
		u.metrics.ObserveUpload("none", "not_configured")
		return "", &StorageError{Op: "upload", Err: ErrNotConfigured}
	}

	start := time.Now()
	url, err := b.Upload(ctx, cat, data, filename)
	if err != nil {
		u.metrics.ObserveUpload(b.Name(), "error")
		u.logger.Warn("upload failed",
			zap.String("backend", b.Name()),
			zap.String("category", string(cat)),
			zap.String("filename", filename),
			zap.Error(err),
		)
		var sErr *StorageError
		if errors.As(err, &sErr) {
			return "", err
		}
		return "", &StorageError{Op: "upload", Backend: b.Name(), Err: err}
	}

	u.metrics.ObserveUpload(b.Name(), "ok")
	u.logger.Info("file uploaded",
		zap.String("backend", b.Name()),
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return url, nil
}

// Delete removes the file behind url. Failures are logged and reported as
// false.
func (u *Uploader) Delete(ctx context.Context, url string) bool {
	b, ok := u.owner(url)
	if !ok {
		u.logger.Warn("delete skipped: no backend owns url", zap.String("url", url))
		return false
	}
	if err := b.Delete(ctx, url); err != nil {
		u.logger.Warn("delete failed", zap.String("backend", b.Name()), zap.String("url", url), zap.Error(err))
		return false
	}
	return true
}

// FileSize returns the size in bytes of the file behind url, or 0 when it
// cannot be determined.
func (u *Uploader) FileSize(ctx context.Context, url string) int64 {
	b, ok := u.owner(url)
	if !ok {
		return 0
	}
	n, err := b.Size(ctx, url)
	if err != nil {
		u.logger.Debug("size lookup failed", zap.String("backend", b.Name()), zap.String("url", url), zap.Error(err))
		return 0
	}
	return n
}

func (u *Uploader) owner(url string) (Backend, bool) {
	for _, b := range u.backends {
		if b.Configured() && b.Owns(url) {
			return b, true
		}
	}
	return nil, false
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	dashRuns    = regexp.MustCompile(`-{2,}`)
	safeExt     = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

const maxBaseLength = 64

// sanitizeFilename splits name into a safe base and extension. Names carrying
// a directory component are rejected outright.
func sanitizeFilename(name string) (base, ext string, err error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	ext = strings.ToLower(filepath.Ext(name))
	base = strings.TrimSuffix(name, filepath.Ext(name))
	if !safeExt.MatchString(ext) {
		ext = ""
	}

	base = unsafeChars.ReplaceAllString(base, "-")
	base = dashRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-_")
	if len(base) > maxBaseLength {
		base = strings.TrimRight(base[:maxBaseLength], "-_")
	}
	if base == "" {
		base = "file"
	}
	return base, ext, nil
}
