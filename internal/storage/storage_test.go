package storage_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bataryakit/notifier/internal/storage"
)

const publicURL = "https://bataryakit.com"

func newLocal(t *testing.T) (*storage.LocalBackend, string) {
	t.Helper()
	dir := t.TempDir()
	return storage.NewLocalBackend(dir, publicURL+"/"), dir
}

func localPath(t *testing.T, base, url string) string {
	t.Helper()
	rest, ok := strings.CutPrefix(url, publicURL+"/uploads/")
	require.True(t, ok, url)
	return filepath.Join(base, filepath.FromSlash(rest))
}

func TestParseCategory(t *testing.T) {
	for _, c := range []string{"products", "invoices", "datasheets", "reviews", "models", " Invoices "} {
		_, err := storage.ParseCategory(c)
		assert.NoError(t, err, c)
	}
	_, err := storage.ParseCategory("secrets")
	assert.ErrorIs(t, err, storage.ErrInvalidCategory)
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, base, ext string
	}{
		{"invoice.pdf", "invoice", ".pdf"},
		{"My Datasheet (v2).PDF", "My-Datasheet-v2", ".pdf"},
		{"şarj cihazı.png", "arj-cihaz", ".png"},
		{"noext", "noext", ""},
		{".hidden", "file", ".hidden"},
		{"weird.ex$e", "weird", ""},
	}
	for _, tc := range cases {
		base, ext, err := storage.SanitizeFilename(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.base, base, tc.in)
		assert.Equal(t, tc.ext, ext, tc.in)
	}

	for _, bad := range []string{"", "../etc/passwd", "a/b.pdf", `..\win.ini`, "x..y"} {
		_, _, err := storage.SanitizeFilename(bad)
		assert.ErrorIs(t, err, storage.ErrInvalidFilename, bad)
	}
}

func TestLocalBackend_UploadWritesFile(t *testing.T) {
	l, dir := newLocal(t)
	storage.SetClock(l, func() time.Time { return time.UnixMilli(1700000000000) })

	url, err := l.Upload(context.Background(), storage.CategoryInvoices, []byte("pdf-bytes"), "ORD-1.pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, publicURL+"/uploads/invoices/ORD-1-1700000000000-"), url)
	assert.True(t, strings.HasSuffix(url, ".pdf"))

	data, err := os.ReadFile(localPath(t, dir, url))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)

	entries, err := os.ReadDir(filepath.Join(dir, "invoices"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalBackend_SameNameNeverOverwrites(t *testing.T) {
	l, dir := newLocal(t)
	storage.SetClock(l, func() time.Time { return time.UnixMilli(42) })

	first, err := l.Upload(context.Background(), storage.CategoryProducts, []byte("one"), "photo.jpg")
	require.NoError(t, err)
	second, err := l.Upload(context.Background(), storage.CategoryProducts, []byte("two"), "photo.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	a, err := os.ReadFile(localPath(t, dir, first))
	require.NoError(t, err)
	b, err := os.ReadFile(localPath(t, dir, second))
	require.NoError(t, err)
	assert.Equal(t, "one", string(a))
	assert.Equal(t, "two", string(b))
}

func TestLocalBackend_RenameFailureLeavesNothingVisible(t *testing.T) {
	l, dir := newLocal(t)
	var target string
	storage.SetRename(l, func(_, newpath string) error {
		target = newpath
		return errors.New("disk yanked")
	})

	_, err := l.Upload(context.Background(), storage.CategoryDatasheets, []byte("data"), "spec.pdf")

	var sErr *storage.StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "rename", sErr.Op)

	require.NotEmpty(t, target)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(filepath.Join(dir, "datasheets"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be cleaned up")
}

func TestLocalBackend_RejectsOversizeBeforeWriting(t *testing.T) {
	l, dir := newLocal(t)

	_, err := l.Upload(context.Background(), storage.CategoryModels, make([]byte, storage.MaxUploadSize+1), "big.stl")
	assert.ErrorIs(t, err, storage.ErrTooLarge)

	_, statErr := os.Stat(filepath.Join(dir, "models"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalBackend_DeleteAndSize(t *testing.T) {
	l, _ := newLocal(t)
	ctx := context.Background()

	url, err := l.Upload(ctx, storage.CategoryReviews, []byte("12345"), "r.txt")
	require.NoError(t, err)

	n, err := l.Size(ctx, url)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	rel := strings.TrimPrefix(url, publicURL)
	assert.True(t, l.Owns(rel))

	require.NoError(t, l.Delete(ctx, rel))
	_, err = l.Size(ctx, url)
	assert.Error(t, err)
}

func TestLocalBackend_RefusesEscapes(t *testing.T) {
	l, _ := newLocal(t)
	for _, url := range []string{
		publicURL + "/uploads/invoices/../../etc/passwd",
		publicURL + "/uploads/secrets/x.pdf",
		publicURL + "/uploads/invoices/.x.tmp-1",
		publicURL + "/static/x.pdf",
		"https://evil.example/uploads/invoices/x.pdf",
	} {
		assert.False(t, l.Owns(url), url)
		assert.Error(t, l.Delete(context.Background(), url), url)
	}
}

func TestCloudBackend_Upload(t *testing.T) {
	store := storage.NewMemoryObjectStore()
	c := storage.NewCloudBackend("bk-uploads", store)
	ctx := context.Background()

	url, err := c.Upload(ctx, storage.CategoryInvoices, []byte("%PDF"), "ORD-9.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/bk-uploads/invoices/ORD-9.pdf", url)

	obj, ok := store.Get("invoices/ORD-9.pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, storage.CacheControl, obj.CacheControl)
	assert.Equal(t, []byte("%PDF"), obj.Data)

	n, err := c.Size(ctx, url)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	require.NoError(t, c.Delete(ctx, url))
	_, ok = store.Get("invoices/ORD-9.pdf")
	assert.False(t, ok)
}

func TestUploader_PrefersLocal(t *testing.T) {
	l, _ := newLocal(t)
	store := storage.NewMemoryObjectStore()
	u := storage.NewUploader([]storage.Backend{l, storage.NewCloudBackend("b", store)})

	url, err := u.Upload(context.Background(), "products", []byte("x"), "a.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, publicURL+"/uploads/products/"))
	_, ok := store.Get("products/a.png")
	assert.False(t, ok)
}

func TestUploader_FallsBackToCloud(t *testing.T) {
	store := storage.NewMemoryObjectStore()
	u := storage.NewUploader([]storage.Backend{
		storage.NewLocalBackend("", publicURL),
		storage.NewCloudBackend("b", store),
	})

	url, err := u.Upload(context.Background(), "invoices", []byte("x"), "ORD-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/b/invoices/ORD-1.pdf", url)
	assert.EqualValues(t, 1, u.FileSize(context.Background(), url))
	assert.True(t, u.Delete(context.Background(), url))
}

func TestUploader_NotConfigured(t *testing.T) {
	u := storage.NewUploader([]storage.Backend{
		storage.NewLocalBackend("", publicURL),
		storage.NewCloudBackend("", nil),
	})

	_, err := u.Upload(context.Background(), "invoices", []byte("x"), "a.pdf")
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}

func TestUploader_Validation(t *testing.T) {
	l, _ := newLocal(t)
	u := storage.NewUploader([]storage.Backend{l})

	_, err := u.Upload(context.Background(), "secrets", []byte("x"), "a.pdf")
	assert.ErrorIs(t, err, storage.ErrInvalidCategory)

	_, err = u.Upload(context.Background(), "products", []byte("x"), "../a.pdf")
	assert.ErrorIs(t, err, storage.ErrInvalidFilename)

	_, err = u.Upload(context.Background(), "products", bytes.Repeat([]byte{1}, storage.MaxUploadSize+1), "a.bin")
	assert.ErrorIs(t, err, storage.ErrTooLarge)
}

func TestUploader_DeleteAndSizeSwallowErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l, _ := newLocal(t)
	u := storage.NewUploader([]storage.Backend{l}, storage.WithLogger(zap.New(core)))
	ctx := context.Background()

	assert.False(t, u.Delete(ctx, publicURL+"/uploads/products/missing.png"))
	assert.Zero(t, u.FileSize(ctx, publicURL+"/uploads/products/missing.png"))
	assert.False(t, u.Delete(ctx, "https://elsewhere.example/x.png"))
	assert.Equal(t, 1, logs.FilterMessage("delete failed").Len())
}
