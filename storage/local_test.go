package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestLocalFS_RoundTrip(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.html":                  "<html></html>",
		"assets/app.js":               "console.log(1)",
		"node_modules/react/index.js": "module.exports = {}",
		".git/HEAD":                   "ref: refs/heads/main",
		"sub/node_modules/x.js":       "skipped too",
	})

	require.NoError(t, store.UploadDirectory(ctx, src, "built/dep-1"))

	ok, err := store.Exists(ctx, "built/dep-1/index.html")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "built/dep-1/node_modules/react/index.js")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := store.Download(ctx, "built/dep-1/assets/app.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))

	dst := t.TempDir()
	require.NoError(t, store.DownloadDirectory(ctx, "built/dep-1", dst))
	assert.Equal(t, map[string]string{
		"index.html":    "<html></html>",
		"assets/app.js": "console.log(1)",
	}, readTree(t, dst))
}

func TestLocalFS_PrefixIsADirectoryBoundary(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{"a.txt": "a"})
	writeTree(t, b, map[string]string{"b.txt": "b"})
	require.NoError(t, store.UploadDirectory(ctx, a, "src/1"))
	require.NoError(t, store.UploadDirectory(ctx, b, "src/10"))

	dst := t.TempDir()
	require.NoError(t, store.DownloadDirectory(ctx, "src/1", dst))
	assert.Equal(t, map[string]string{"a.txt": "a"}, readTree(t, dst))
}

func TestLocalFS_NotFound(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Download(ctx, "missing/key")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Exists(ctx, "missing/key")
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.DownloadDirectory(ctx, "missing", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalFS_RejectsTraversal(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "../outside")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes storage root")
}

func TestDestination(t *testing.T) {
	root := filepath.FromSlash("/work/build-1")

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "nested", key: "src/1/a/b.txt", want: filepath.Join(root, "a", "b.txt")},
		{name: "directory marker", key: "src/1/a/", want: ""},
		{name: "prefix itself", key: "src/1/", want: ""},
		{name: "parent escape", key: "src/1/../../etc/passwd", wantErr: true},
		{name: "inner dots resolved", key: "src/1/a/../b.txt", want: filepath.Join(root, "b.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := destination(root, "src/1/", tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
