package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/buildbox/deployment"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "buildbox.yaml")
	content := "logging:\n  level: error\n" +
		"queue:\n  backend: memory\n" +
		"repository:\n  backend: sqlite\n  sqlite_path: " + filepath.Join(dir, "buildbox.db") + "\n" +
		"storage:\n  backend: local\n  local_root: " + filepath.Join(dir, "artifacts") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnqueueCreateAndStatus(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "enqueue", "--create", "--source-path", "uploads/dep-1", "dep-1")
	require.NoError(t, err)
	assert.Equal(t, "queued dep-1\n", out)

	out, err = run(t, "--config", cfgPath, "status", "dep-1")
	require.NoError(t, err)

	var d deployment.Deployment
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "dep-1", d.ID)
	assert.Equal(t, deployment.StatusQueued, d.Status)
	assert.Equal(t, "uploads/dep-1", d.SourcePath)
	assert.WithinDuration(t, time.Now(), d.CreatedAt, time.Minute)
}

func TestEnqueueRejectsDuplicateCreate(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "enqueue", "--create", "--source-path", "uploads/dep-1", "dep-1")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "enqueue", "--create", "--source-path", "uploads/dep-1", "dep-1")
	assert.ErrorContains(t, err, "already exists")
}

func TestEnqueueUnknownDeployment(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "enqueue", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, deployment.ErrNotFound)
}

func TestEnqueueFlagValidation(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "enqueue", "--create", "dep-1")
	assert.ErrorContains(t, err, "--create requires --source-path")

	_, err = run(t, "--config", cfgPath, "enqueue", "--create", "--source-path", "uploads", "a", "b")
	assert.ErrorContains(t, err, "exactly one deployment id")
}

func TestQueueSize(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "queue-size")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestMigrateWithoutPostgres(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "repository backend sqlite has no migrations")
}

func TestConfigPrintsEffectiveYAML(t *testing.T) {
	t.Setenv("BUILDBOX_S3_SECRET_KEY", "do-not-print")

	out, err := run(t, "--config", writeConfig(t), "config")
	require.NoError(t, err)

	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "image: node:18-alpine")
	assert.Contains(t, out, "- NODE_ENV=production")
	assert.NotContains(t, out, "do-not-print")
}
