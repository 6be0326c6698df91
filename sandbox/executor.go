package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/buildbox/builderr"
)

// Config holds the executor's container settings.
type Config struct {
	Image        string
	Workdir      string
	MemoryMB     int
	CPUPeriod    int64
	CPUQuota     int64
	PhaseTimeout time.Duration
	StopGrace    time.Duration
	Network      string
	DNS          string
	Env          map[string]string
}

// DefaultConfig returns the standard build sandbox settings.
func DefaultConfig() Config {
	return Config{
		Image:        "node:18-alpine",
		Workdir:      "/project",
		MemoryMB:     1024,
		CPUPeriod:    100000,
		CPUQuota:     100000,
		PhaseTimeout: 5 * time.Minute,
		StopGrace:    5 * time.Second,
		Network:      "bridge",
		DNS:          "0.0.0.0",
		Env:          map[string]string{"NODE_ENV": "production", "CI": "true"},
	}
}

// teardownSlack is added to the stop grace to bound each teardown call.
const teardownSlack = 30 * time.Second

// Executor builds source trees in single-use containers.
type Executor struct {
	logger  *zap.Logger
	runtime Runtime
	config  Config
	newName func() string
}

// ExecutorOption defines a functional option for Executor
type ExecutorOption func(*Executor)

// WithNameFunc overrides how container names are generated.
func WithNameFunc(fn func() string) ExecutorOption {
	return func(e *Executor) {
		e.newName = fn
	}
}

// NewExecutor creates an Executor driving runtime.
func NewExecutor(logger *zap.Logger, runtime Runtime, config Config, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:  logger,
		runtime: runtime,
		config:  config,
		newName: func() string { return "build-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build runs the install and build phases for framework against the tree at
// sourceRoot. The tree is mounted read-write so build output lands in it.
// Whatever happens, the container is torn down before Build returns.
func (e *Executor) Build(ctx context.Context, sourceRoot string, framework Framework) error {
	recipe := framework.Recipe()

	s := e.openSession(sourceRoot)
	defer s.close(ctx)

	s.logger.Info("creating build container", zap.Stringer("framework", framework))
	if err := s.create(ctx); err != nil {
		return err
	}
	if err := s.start(ctx); err != nil {
		return err
	}

	s.logger.Info("installing dependencies (network enabled)", zap.String("command", recipe.Install))
	if err := e.runPhase(ctx, s, "install", recipe.Install); err != nil {
		return err
	}
	s.advance(PhaseDependenciesInstalled)

	s.detachNetwork(ctx)

	s.logger.Info("building project (network disabled)", zap.String("command", recipe.Build))
	if err := e.runPhase(ctx, s, "build", recipe.Build); err != nil {
		return err
	}
	s.advance(PhaseBuilt)

	s.logger.Info("build completed")
	return nil
}

type execResult struct {
	exitCode int
	err      error
}

// runPhase executes command under the phase timeout. The exec runs on its
// own goroutine so the timeout can abandon it; the result channel is
// buffered so that goroutine never blocks after being abandoned.
func (e *Executor) runPhase(ctx context.Context, s *session, phase, command string) error {
	phaseCtx, cancel := context.WithTimeout(ctx, e.config.PhaseTimeout)
	defer cancel()

	logger := s.logger.With(zap.String("phase", phase))
	output := newOutputLog(logger)
	done := make(chan execResult, 1)

	go func() {
		code, err := e.runtime.Exec(phaseCtx, s.ref(), []string{"sh", "-c", command}, output)
		done <- execResult{exitCode: code, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return e.interrupted(ctx, phaseCtx, phase, command, res.err)
		}
		if res.exitCode != 0 {
			captured := output.String()
			logger.Error("command failed",
				zap.String("command", command),
				zap.Int("exit_code", res.exitCode),
				zap.String("output", captured))
			return builderr.BuildFailure(command, res.exitCode, captured)
		}
		return nil
	case <-phaseCtx.Done():
		cancel()
		return e.interrupted(ctx, phaseCtx, phase, command, phaseCtx.Err())
	}
}

// interrupted classifies a phase that ended without an exit code.
func (e *Executor) interrupted(ctx, phaseCtx context.Context, phase, command string, cause error) error {
	if ctx.Err() != nil {
		return builderr.Infrastructure(ctx.Err(), "%s phase interrupted", phase)
	}
	if errors.Is(phaseCtx.Err(), context.DeadlineExceeded) {
		e.logger.Error("build timeout, abandoning command",
			zap.String("phase", phase),
			zap.String("command", command),
			zap.Duration("timeout", e.config.PhaseTimeout))
		return builderr.Timeout(command, "%s phase exceeded the time limit of %s: %s", phase, e.config.PhaseTimeout, command)
	}
	return builderr.Infrastructure(cause, "exec %s phase", phase)
}
