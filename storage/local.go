package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalFS is an ObjectStore rooted at a directory, for single-node
// installs and tests.
type LocalFS struct {
	Root string
}

// NewLocalFS creates a LocalFS, creating root if needed.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFS{Root: root}, nil
}

// UploadDirectory copies the tree at localPath under prefix.
func (l *LocalFS) UploadDirectory(ctx context.Context, localPath, prefix string) error {
	files, err := collectUploads(localPath, prefix)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := l.path(f.key)
		if err != nil {
			return err
		}
		if err := copyFile(f.abs, dst); err != nil {
			return fmt.Errorf("upload %s: %w", f.key, err)
		}
	}
	return nil
}

// DownloadDirectory copies every object under prefix into localPath.
func (l *LocalFS) DownloadDirectory(ctx context.Context, prefix, localPath string) error {
	dir := dirPrefix(prefix)
	src, err := l.path(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("download %s: %w", prefix, ErrNotFound)
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		dst, err := destination(localPath, dir, dir+filepath.ToSlash(rel))
		if err != nil || dst == "" {
			return err
		}
		return copyFile(p, dst)
	})
}

// Exists reports whether key is a stored object.
func (l *LocalFS) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Download returns the contents of key.
func (l *LocalFS) Download(_ context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("download %s: %w", key, ErrNotFound)
	}
	return data, err
}

// path maps key to a file under Root, rejecting keys that climb out of it.
func (l *LocalFS) path(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("object key %q escapes storage root", key)
		}
	}
	return filepath.Join(l.Root, filepath.FromSlash(path.Clean("/"+key))), nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
