package integration

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/buildbox/deployment"
	"github.com/isdmx/buildbox/queue"
	"github.com/isdmx/buildbox/repository"
	"github.com/isdmx/buildbox/sandbox"
	"github.com/isdmx/buildbox/security"
	"github.com/isdmx/buildbox/storage"
	"github.com/isdmx/buildbox/worker"
)

// hostRuntime stands in for a container engine. Phase commands act on the
// bind-mounted host directory: a build writes dist/index.html.
type hostRuntime struct {
	mu         sync.Mutex
	failBuild  bool
	sources    map[string]string
	created    []string
	removed    []string
	detached   []string
	commands   []string
	lastSpec   sandbox.ContainerSpec
	containerN int
}

func newHostRuntime() *hostRuntime {
	return &hostRuntime{sources: map[string]string{}}
}

func (r *hostRuntime) Create(_ context.Context, spec sandbox.ContainerSpec) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containerN++
	id := fmt.Sprintf("c%d", r.containerN)
	r.sources[id] = spec.Binds[0].Source
	r.created = append(r.created, id)
	r.lastSpec = spec
	return id, nil
}

func (r *hostRuntime) Start(context.Context, string) error { return nil }

func (r *hostRuntime) Exec(_ context.Context, id string, cmd []string, output io.Writer) (int, error) {
	r.mu.Lock()
	src := r.sources[id]
	command := cmd[len(cmd)-1]
	r.commands = append(r.commands, command)
	fail := r.failBuild
	r.mu.Unlock()

	if !strings.HasPrefix(command, "npm run build") {
		_, _ = io.WriteString(output, "added 12 packages\n")
		return 0, nil
	}
	if fail {
		_, _ = io.WriteString(output, "src/index.js: SyntaxError: Unexpected token\n")
		return 1, nil
	}
	if err := os.MkdirAll(filepath.Join(src, "dist"), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(src, "dist", "index.html"), []byte("<html>built</html>"), 0o644); err != nil {
		return 0, err
	}
	return 0, nil
}

func (r *hostRuntime) DisconnectNetwork(_ context.Context, id, _ string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = append(r.detached, id)
	return nil
}

func (r *hostRuntime) Stop(context.Context, string, time.Duration) error { return nil }

func (r *hostRuntime) Remove(_ context.Context, id string, _, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	return nil
}

type pipeline struct {
	repo    *repository.SQLite
	store   *storage.LocalFS
	queue   *queue.Memory
	runtime *hostRuntime
	worker  *worker.Worker
}

func newPipeline(t *testing.T, limits security.Limits) *pipeline {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)

	repo, err := repository.OpenSQLite(filepath.Join(dir, "buildbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	store, err := storage.NewLocalFS(filepath.Join(dir, "objects"))
	require.NoError(t, err)

	rt := newHostRuntime()
	cfg := sandbox.DefaultConfig()
	cfg.PhaseTimeout = 10 * time.Second
	executor := sandbox.NewExecutor(log, rt, cfg)

	q := queue.NewMemory()
	w := worker.New(log, q, repo, store, security.NewValidator(log, limits), executor,
		worker.WithWorkspaceRoot(filepath.Join(dir, "workspaces")),
		worker.WithPollTimeout(20*time.Millisecond))

	return &pipeline{repo: repo, store: store, queue: q, runtime: rt, worker: w}
}

// submit uploads files as a project source and queues a new deployment.
func (p *pipeline) submit(t *testing.T, id string, files map[string]string) {
	t.Helper()
	ctx := context.Background()
	src := t.TempDir()
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, p.store.UploadDirectory(ctx, src, "uploads/"+id))
	require.NoError(t, p.repo.Save(ctx, deployment.New(id, "uploads/"+id, time.Now())))
	require.NoError(t, p.queue.Push(ctx, id))
}

// runUntilFinished runs the worker until every id reaches a terminal status.
func (p *pipeline) runUntilFinished(t *testing.T, ids ...string) map[string]*deployment.Deployment {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.worker.Run(ctx) }()

	results := map[string]*deployment.Deployment{}
	require.Eventually(t, func() bool {
		for _, id := range ids {
			d, err := p.repo.FindByID(context.Background(), id)
			if err != nil || !d.Status.Terminal() {
				return false
			}
			results[id] = d
		}
		return true
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	return results
}

func TestPipeline_ReactProjectIsBuiltAndUploaded(t *testing.T) {
	p := newPipeline(t, security.DefaultLimits())
	p.submit(t, "dep-1", map[string]string{
		"package.json": `{"name":"site","dependencies":{"react":"18.2.0"}}`,
		"src/index.js": `fetch("https://api.example.com")`,
	})

	d := p.runUntilFinished(t, "dep-1")["dep-1"]

	assert.Equal(t, deployment.StatusBuildSuccess, d.Status)
	assert.Equal(t, "built/dep-1", d.BuildPath)
	require.NotNil(t, d.BuildDurationSeconds)
	require.NotNil(t, d.CompletedAt)

	data, err := p.store.Download(context.Background(), "built/dep-1/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>built</html>", string(data))

	assert.Equal(t, p.runtime.created, p.runtime.removed)
	assert.Equal(t, p.runtime.created, p.runtime.detached)
	assert.Equal(t, []string{"npm ci --production=false", "npm run build"}, p.runtime.commands)
	assert.Equal(t, []string{"ALL"}, p.runtime.lastSpec.Security.CapDrop)
	assert.True(t, p.runtime.lastSpec.Security.NoNewPrivileges)
}

func TestPipeline_OversizedFileIsRejectedBeforeAnyContainer(t *testing.T) {
	p := newPipeline(t, security.Limits{MaxTotalBytes: 4 << 20, MaxFileBytes: 1 << 20})
	p.submit(t, "dep-2", map[string]string{
		"package.json": `{"dependencies":{"vue":"3.4.0"}}`,
		"assets/video.bin": strings.Repeat("x", 2<<20),
	})

	d := p.runUntilFinished(t, "dep-2")["dep-2"]

	assert.Equal(t, deployment.StatusBuildFailed, d.Status)
	assert.Contains(t, d.ErrorMessage, "video.bin")
	assert.Empty(t, p.runtime.created)

	exists, err := p.store.Exists(context.Background(), "built/dep-2/index.html")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_FailingBuildIsRecordedAndTornDown(t *testing.T) {
	p := newPipeline(t, security.DefaultLimits())
	p.runtime.failBuild = true
	p.submit(t, "dep-3", map[string]string{
		"package.json": `{"devDependencies":{"vite":"5.0.0"}}`,
	})

	d := p.runUntilFinished(t, "dep-3")["dep-3"]

	assert.Equal(t, deployment.StatusBuildFailed, d.Status)
	assert.Contains(t, d.ErrorMessage, "exit code 1")
	assert.Contains(t, d.ErrorMessage, "SyntaxError")
	assert.Len(t, p.runtime.created, 1)
	assert.Equal(t, p.runtime.created, p.runtime.removed)
}

func TestPipeline_QueueDriftDoesNotStopTheWorker(t *testing.T) {
	p := newPipeline(t, security.DefaultLimits())
	require.NoError(t, p.queue.Push(context.Background(), "never-created"))
	p.submit(t, "dep-4", map[string]string{"index.html": "<html></html>"})

	d := p.runUntilFinished(t, "dep-4")["dep-4"]

	assert.Equal(t, deployment.StatusBuildSuccess, d.Status)
	size, err := p.queue.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}
