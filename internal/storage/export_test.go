package storage

import "time"

// SetRename replaces the rename step of l, for failure injection.
func SetRename(l *LocalBackend, fn func(oldpath, newpath string) error) {
	l.rename = fn
}

// SetClock pins the timestamp used in generated names.
func SetClock(l *LocalBackend, now func() time.Time) {
	l.now = now
}

var SanitizeFilename = sanitizeFilename
