// Package storage moves source trees and build artifacts between the local
// workspace and an object store.
//
// Keys are slash-separated. Uploads skip .git and node_modules subtrees.
// Downloads recreate relative paths under the destination and refuse any
// key that would land outside it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is a key/value blob store holding directory trees.
type ObjectStore interface {
	UploadDirectory(ctx context.Context, localPath, prefix string) error
	DownloadDirectory(ctx context.Context, prefix, localPath string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Download returns ErrNotFound when key is absent.
	Download(ctx context.Context, key string) ([]byte, error)
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// localFile is one file selected for upload.
type localFile struct {
	abs string
	key string
}

// collectUploads lists the regular files under root with their object keys.
func collectUploads(root, prefix string) ([]localFile, error) {
	var files []localFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{abs: p, key: joinKey(prefix, filepath.ToSlash(rel))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func joinKey(prefix, rel string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// dirPrefix returns prefix with exactly one trailing slash, so "built/1"
// does not match "built/10".
func dirPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// destination maps key, which must start with dir, to a path under root.
func destination(root, dir, key string) (string, error) {
	rel := strings.TrimPrefix(key, dir)
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", nil
	}
	clean := path.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("object key %q escapes destination", key)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
