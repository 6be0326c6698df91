package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/buildbox/config"
)

// NewRuntime creates the container runtime named by sandbox.backend.
func NewRuntime(logger *zap.Logger, cfg *config.Config) (Runtime, error) {
	switch cfg.Sandbox.Backend {
	case BackendDocker, BackendPodman:
		logger.Info("using container runtime", zap.String("backend", cfg.Sandbox.Backend))
		return NewCLIRuntime(logger, cfg.Sandbox.Backend), nil
	default:
		return nil, fmt.Errorf("unsupported sandbox backend: %s", cfg.Sandbox.Backend)
	}
}

// ConfigFrom maps the sandbox section of cfg onto executor settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Image:        cfg.Sandbox.Image,
		Workdir:      cfg.Sandbox.Workdir,
		MemoryMB:     cfg.Sandbox.MemoryMB,
		CPUPeriod:    cfg.Sandbox.CPUPeriod,
		CPUQuota:     cfg.Sandbox.CPUQuota,
		PhaseTimeout: cfg.GetPhaseTimeout(),
		StopGrace:    cfg.GetStopGrace(),
		Network:      cfg.Sandbox.Network,
		DNS:          cfg.Sandbox.DNS,
		Env:          cfg.SandboxEnv(),
	}
}

// NewBuildExecutor creates an Executor from application configuration.
func NewBuildExecutor(logger *zap.Logger, cfg *config.Config, runtime Runtime) *Executor {
	return NewExecutor(logger, runtime, ConfigFrom(cfg))
}
