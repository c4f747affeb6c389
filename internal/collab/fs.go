package collab

import (
	"context"
	"os"
	"path/filepath"
)

var _ Persister = FSPersister{}

// FSPersister writes artifacts to the local filesystem. Existing files are
// overwritten in place.
type FSPersister struct{}

// Write creates dir if absent and writes content to dir/name.
func (FSPersister) Write(ctx context.Context, dir, name, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &FilesystemError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", &FilesystemError{Path: path, Err: err}
	}
	return path, nil
}
