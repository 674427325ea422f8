package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalBackend writes uploads under a base directory served at
// {publicURL}/uploads/.
type LocalBackend struct {
	baseDir   string
	publicURL string

	// dirs caches absolute directory paths known to exist. Entries are
	// never evicted; the set is bounded by the category list.
	dirs sync.Map

	rename func(oldpath, newpath string) error
	now    func() time.Time
}

func NewLocalBackend(baseDir, publicURL string) *LocalBackend {
	return &LocalBackend{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		rename:    os.Rename,
		now:       time.Now,
	}
}

func (l *LocalBackend) Name() string { return "local" }

func (l *LocalBackend) Configured() bool { return strings.TrimSpace(l.baseDir) != "" }

func (l *LocalBackend) Owns(url string) bool {
	_, _, err := l.pathFor(url)
	return err == nil
}

// Upload writes data to a temporary sibling and renames it into place, so the
// final path either holds the whole file or does not exist.
func (l *LocalBackend) Upload(ctx context.Context, category Category, data []byte, filename string) (string, error) {
	if len(data) > MaxUploadSize {
		return "", &StorageError{Op: "upload", Backend: l.Name(), Err: ErrTooLarge}
	}
	base, ext, err := sanitizeFilename(filename)
	if err != nil {
		return "", &StorageError{Op: "upload", Backend: l.Name(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &StorageError{Op: "upload", Backend: l.Name(), Err: err}
	}

	dir, err := l.ensureDir(string(category))
	if err != nil {
		return "", &StorageError{Op: "mkdir", Backend: l.Name(), Err: err}
	}

	name := fmt.Sprintf("%s-%d-%s%s", base, l.now().UnixMilli(), uuid.NewString()[:8], ext)
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", &StorageError{Op: "create", Backend: l.Name(), Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", &StorageError{Op: "write", Backend: l.Name(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", &StorageError{Op: "sync", Backend: l.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &StorageError{Op: "close", Backend: l.Name(), Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", &StorageError{Op: "chmod", Backend: l.Name(), Err: err}
	}
	if err := l.rename(tmpPath, final); err != nil {
		return "", &StorageError{Op: "rename", Backend: l.Name(), Err: err}
	}
	committed = true

	return l.publicURL + "/uploads/" + string(category) + "/" + name, nil
}

func (l *LocalBackend) Delete(_ context.Context, url string) error {
	_, path, err := l.pathFor(url)
	if err != nil {
		return &StorageError{Op: "delete", Backend: l.Name(), Err: err}
	}
	if err := os.Remove(path); err != nil {
		return &StorageError{Op: "delete", Backend: l.Name(), Err: err}
	}
	return nil
}

func (l *LocalBackend) Size(_ context.Context, url string) (int64, error) {
	_, path, err := l.pathFor(url)
	if err != nil {
		return 0, &StorageError{Op: "stat", Backend: l.Name(), Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, &StorageError{Op: "stat", Backend: l.Name(), Err: err}
	}
	return info.Size(), nil
}

func (l *LocalBackend) ensureDir(category string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(l.baseDir, category))
	if err != nil {
		return "", err
	}
	if _, ok := l.dirs.Load(dir); ok {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	l.dirs.Store(dir, struct{}{})
	return dir, nil
}

// pathFor maps a public or site-relative upload URL back to a file under the
// base directory, refusing anything that would escape it.
func (l *LocalBackend) pathFor(url string) (Category, string, error) {
	rel := strings.TrimPrefix(url, l.publicURL)
	rest, ok := strings.CutPrefix(rel, "/uploads/")
	if !ok {
		return "", "", ErrNotOwned
	}
	catStr, file, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", ErrNotOwned
	}
	cat, err := ParseCategory(catStr)
	if err != nil {
		return "", "", err
	}
	if file == "" || file != filepath.Base(file) || strings.HasPrefix(file, ".") || strings.ContainsAny(file, `/\`) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, file)
	}

	base, err := filepath.Abs(l.baseDir)
	if err != nil {
		return "", "", err
	}
	path := filepath.Join(base, string(cat), file)
	if r, err := filepath.Rel(base, path); err != nil || strings.HasPrefix(r, "..") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFilename, file)
	}
	return cat, path, nil
}
