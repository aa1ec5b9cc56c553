// Package resolver implements gilia's file-based import resolution:
// `import "path"` resolves relative to the importing file's own
// directory, using the operating system's filesystem.
package resolver

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"
)

// FS resolves imports against the local filesystem. It coalesces
// concurrent Normalize calls for the same (dir, path) pair via
// singleflight: calls that overlap in time share one resolution. Results
// are not cached, so a later call for the same pair resolves it again.
type FS struct {
	group singleflight.Group
}

// NewFS constructs a ready-to-use filesystem resolver.
func NewFS() *FS { return &FS{} }

// Normalize joins path onto dir and resolves it to an absolute,
// symlink-free path.
func (fs *FS) Normalize(dir, path string) (string, error) {
	joined := filepath.Join(dir, path)
	v, err, _ := fs.group.Do(joined, func() (any, error) {
		return filepath.EvalSymlinks(joined)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Open opens the file at a canonical path previously returned by
// Normalize.
func (fs *FS) Open(canonical string) (io.ReadCloser, error) {
	return os.Open(canonical)
}
