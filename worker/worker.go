package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/buildbox/builderr"
	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/deployment"
	"github.com/isdmx/buildbox/logger"
	"github.com/isdmx/buildbox/queue"
	"github.com/isdmx/buildbox/sandbox"
	"github.com/isdmx/buildbox/security"
	"github.com/isdmx/buildbox/storage"
)

// Validator screens a source tree before it is built.
type Validator interface {
	Validate(ctx context.Context, root string) (security.Report, error)
}

// Builder builds a source tree in place.
type Builder interface {
	Build(ctx context.Context, sourceRoot string, framework sandbox.Framework) error
}

const (
	defaultPollTimeout    = 5 * time.Second
	defaultErrorBackoff   = time.Second
	defaultArtifactPrefix = "built"
	// persistTimeout bounds terminal status writes made after cancellation.
	persistTimeout = 10 * time.Second
)

// Worker is the build queue consumer.
type Worker struct {
	logger         *zap.Logger
	queue          queue.Queue
	repo           deployment.Repository
	store          storage.ObjectStore
	validator      Validator
	builder        Builder
	clock          deployment.Clock
	workspaceRoot  string
	pollTimeout    time.Duration
	errorBackoff   time.Duration
	artifactPrefix string
}

// Option defines a functional option for Worker
type Option func(*Worker)

// WithClock sets the time source used for durations.
func WithClock(c deployment.Clock) Option {
	return func(w *Worker) {
		w.clock = c
	}
}

// WithWorkspaceRoot sets the directory holding per-job workspaces.
func WithWorkspaceRoot(dir string) Option {
	return func(w *Worker) {
		w.workspaceRoot = dir
	}
}

// WithPollTimeout sets how long each dequeue blocks.
func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.pollTimeout = d
	}
}

// WithErrorBackoff sets the pause after a failed dequeue.
func WithErrorBackoff(d time.Duration) Option {
	return func(w *Worker) {
		w.errorBackoff = d
	}
}

// WithArtifactPrefix sets the key prefix build output is uploaded under.
func WithArtifactPrefix(prefix string) Option {
	return func(w *Worker) {
		w.artifactPrefix = strings.Trim(prefix, "/")
	}
}

// New creates a Worker.
func New(
	logger *zap.Logger,
	q queue.Queue,
	repo deployment.Repository,
	store storage.ObjectStore,
	validator Validator,
	builder Builder,
	opts ...Option,
) *Worker {
	w := &Worker{
		logger:         logger,
		queue:          q,
		repo:           repo,
		store:          store,
		validator:      validator,
		builder:        builder,
		clock:          deployment.RealClock{},
		workspaceRoot:  os.TempDir(),
		pollTimeout:    defaultPollTimeout,
		errorBackoff:   defaultErrorBackoff,
		artifactPrefix: defaultArtifactPrefix,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewFromConfig creates a Worker using the worker section of cfg.
func NewFromConfig(
	cfg *config.Config,
	logger *zap.Logger,
	q queue.Queue,
	repo deployment.Repository,
	store storage.ObjectStore,
	validator Validator,
	builder Builder,
) *Worker {
	return New(logger, q, repo, store, validator, builder,
		WithWorkspaceRoot(cfg.Worker.WorkspaceDir),
		WithPollTimeout(cfg.GetPollTimeout()),
		WithArtifactPrefix(cfg.Worker.ArtifactPrefix),
	)
}

// Run consumes the queue until ctx is cancelled. A failing or panicking job
// never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("build worker started",
		zap.String("workspace_root", w.workspaceRoot),
		zap.Duration("poll_timeout", w.pollTimeout))

	for ctx.Err() == nil {
		w.iterate(ctx)
	}

	w.logger.Info("build worker stopped")
	return nil
}

func (w *Worker) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("recovered from panic in build loop", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	id, ok, err := w.queue.Pop(ctx, w.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("failed to dequeue build job", zap.Error(err))
		w.pause(ctx)
		return
	}
	if !ok {
		return
	}

	w.ProcessJob(ctx, id)
}

func (w *Worker) pause(ctx context.Context) {
	t := time.NewTimer(w.errorBackoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ProcessJob builds one deployment end to end and persists its terminal
// status. Duration is measured from before the record is loaded.
func (w *Worker) ProcessJob(ctx context.Context, id string) {
	log := logger.ForDeployment(w.logger, id)
	start := w.clock.Now()

	log.Info("processing build job")

	d, err := w.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			log.Error("deployment not found, dropping job")
		} else {
			log.Error("failed to load deployment, dropping job", zap.Error(err))
		}
		return
	}
	if d.Status.Terminal() {
		log.Warn("deployment already finished, skipping", zap.String("status", string(d.Status)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing job", zap.Any("panic", r), zap.Stack("stack"))
			w.fail(ctx, log, d, start, builderr.Infrastructure(fmt.Errorf("panic: %v", r), "internal error"))
		}
	}()

	if err := validateID(id); err != nil {
		w.fail(ctx, log, d, start, err)
		return
	}

	workspace := filepath.Join(w.workspaceRoot, "build-"+id)
	defer w.removeWorkspace(log, workspace)

	buildPath, err := w.build(ctx, log, d, workspace)
	if err != nil {
		w.fail(ctx, log, d, start, err)
		return
	}

	if err := d.MarkSucceeded(w.clock.Now(), start, buildPath); err != nil {
		log.Error("cannot record build success", zap.Error(err))
		return
	}
	if err := w.persist(ctx, d); err != nil {
		log.Error("failed to persist build success", zap.Error(err))
		return
	}
	log.Info("build completed successfully",
		zap.String("build_path", buildPath),
		zap.Duration("duration", d.Duration()))
}

// build runs every step up to and including the artifact upload and returns
// the artifact key.
func (w *Worker) build(ctx context.Context, log *zap.Logger, d *deployment.Deployment, workspace string) (string, error) {
	if d.SourcePath == "" {
		return "", builderr.Infrastructure(nil, "deployment has no source path")
	}
	if err := os.RemoveAll(workspace); err != nil {
		return "", builderr.Infrastructure(err, "clear workspace")
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", builderr.Infrastructure(err, "create workspace")
	}

	log.Info("downloading source", zap.String("source_path", d.SourcePath))
	if err := w.store.DownloadDirectory(ctx, d.SourcePath, workspace); err != nil {
		return "", builderr.Infrastructure(err, "download source")
	}

	if err := d.Transition(deployment.StatusBuilding); err != nil {
		return "", builderr.Infrastructure(err, "start build")
	}
	if err := w.repo.Save(ctx, d); err != nil {
		return "", builderr.Infrastructure(err, "persist BUILDING status")
	}

	report, err := w.validator.Validate(ctx, workspace)
	if err != nil {
		return "", err
	}
	log.Info("security validation passed",
		zap.Int64("total_bytes", report.TotalBytes),
		zap.Int("files", report.Files),
		zap.Int("findings", len(report.Findings)))

	framework := DetectFramework(workspace)
	log.Info("detected framework", zap.Stringer("framework", framework))

	if err := w.builder.Build(ctx, workspace, framework); err != nil {
		return "", err
	}

	buildPath := path.Join(w.artifactPrefix, d.ID)
	output := framework.Recipe().OutputPath(workspace)
	log.Info("uploading build output", zap.String("output_dir", output), zap.String("build_path", buildPath))
	if err := w.store.UploadDirectory(ctx, output, buildPath); err != nil {
		return "", builderr.Infrastructure(err, "upload build output")
	}
	return buildPath, nil
}

func (w *Worker) fail(ctx context.Context, log *zap.Logger, d *deployment.Deployment, start time.Time, cause error) {
	log.Error("build failed",
		zap.String("kind", string(builderr.KindOf(cause))),
		zap.Error(cause))

	if err := d.MarkFailed(w.clock.Now(), start, cause.Error()); err != nil {
		log.Error("cannot record build failure", zap.Error(err))
		return
	}
	if err := w.persist(ctx, d); err != nil {
		log.Error("failed to persist build failure", zap.Error(err))
	}
}

// persist writes a terminal status even when ctx has been cancelled.
func (w *Worker) persist(ctx context.Context, d *deployment.Deployment) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return w.repo.Save(pctx, d)
}

func (w *Worker) removeWorkspace(log *zap.Logger, workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		log.Warn("failed to remove workspace", zap.String("workspace", workspace), zap.Error(err))
	}
}

// validateID rejects ids that cannot name a workspace directory.
func validateID(id string) error {
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return builderr.SecurityViolation(nil, "invalid deployment id %q", id)
	}
	return nil
}
