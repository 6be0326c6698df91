package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/isdmx/buildbox/builderr"
)

// Phase is a step of the sandbox lifecycle.
type Phase string

const (
	PhasePending               Phase = "PENDING"
	PhaseCreated               Phase = "CREATED"
	PhaseStarted               Phase = "STARTED"
	PhaseDependenciesInstalled Phase = "DEPENDENCIES_INSTALLED"
	PhaseNetworkDetached       Phase = "NETWORK_DETACHED"
	PhaseBuilt                 Phase = "BUILT"
	PhaseTornDown              Phase = "TORN_DOWN"
)

// NetworkState tracks whether the container is attached to its network.
type NetworkState string

const (
	NetworkAttached NetworkState = "attached"
	NetworkDetached NetworkState = "detached"
)

// session is one container's lifetime within a single Build call.
type session struct {
	runtime Runtime
	logger  *zap.Logger
	config  Config
	spec    ContainerSpec
	id      string
	phase   Phase
	network NetworkState
}

func (e *Executor) openSession(sourceRoot string) *session {
	name := e.newName()
	memory := int64(e.config.MemoryMB) * 1024 * 1024

	spec := ContainerSpec{
		Name:    name,
		Image:   e.config.Image,
		Workdir: e.config.Workdir,
		Binds:   []Bind{{Source: sourceRoot, Target: e.config.Workdir}},
		Limits: ResourceLimits{
			MemoryBytes:     memory,
			MemorySwapBytes: memory,
			CPUPeriod:       e.config.CPUPeriod,
			CPUQuota:        e.config.CPUQuota,
		},
		Security: SecurityOptions{
			CapDrop:         []string{"ALL"},
			NoNewPrivileges: true,
		},
		NetworkMode: e.config.Network,
		DNS:         []string{e.config.DNS},
		Env:         e.config.Env,
		Cmd:         []string{"tail", "-f", "/dev/null"},
	}

	return &session{
		runtime: e.runtime,
		logger:  e.logger.With(zap.String("container", name)),
		config:  e.config,
		spec:    spec,
		phase:   PhasePending,
		network: NetworkAttached,
	}
}

// ref identifies the container to the runtime: its id once known, its name
// before that.
func (s *session) ref() string {
	if s.id != "" {
		return s.id
	}
	return s.spec.Name
}

func (s *session) advance(p Phase) {
	s.phase = p
	s.logger.Debug("sandbox phase reached", zap.String("phase", string(p)))
}

func (s *session) create(ctx context.Context) error {
	id, err := s.runtime.Create(ctx, s.spec)
	if err != nil {
		return builderr.Infrastructure(err, "create build container")
	}
	s.id = id
	s.logger = s.logger.With(zap.String("container_id", id))
	s.advance(PhaseCreated)
	return nil
}

func (s *session) start(ctx context.Context) error {
	if err := s.runtime.Start(ctx, s.id); err != nil {
		return builderr.Infrastructure(err, "start build container")
	}
	s.advance(PhaseStarted)
	return nil
}

// detachNetwork is best-effort: the build phase runs whether or not the
// runtime reports success, since the container may already be detached.
func (s *session) detachNetwork(ctx context.Context) {
	if err := s.runtime.DisconnectNetwork(ctx, s.id, s.config.Network, true); err != nil {
		s.logger.Warn("failed to disable network (container may already be disconnected)", zap.Error(err))
	} else {
		s.logger.Info("network access disabled")
	}
	s.network = NetworkDetached
	s.advance(PhaseNetworkDetached)
}

// close stops and removes the container. It runs on a context detached from
// ctx's cancellation so a cancelled build still releases its container, and
// it never returns an error.
func (s *session) close(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	reached := s.phase

	stopCtx, cancelStop := context.WithTimeout(base, s.config.StopGrace+teardownSlack)
	if err := s.runtime.Stop(stopCtx, s.ref(), s.config.StopGrace); err != nil {
		s.logger.Debug("stop failed (container may already be stopped)", zap.Error(err))
	}
	cancelStop()

	removeCtx, cancelRemove := context.WithTimeout(base, teardownSlack)
	defer cancelRemove()
	if err := s.runtime.Remove(removeCtx, s.ref(), true, true); err != nil {
		s.logger.Error("failed to clean up container",
			zap.String("reached_phase", string(reached)),
			zap.String("network", string(s.network)),
			zap.Error(err))
	} else {
		s.logger.Info("container cleaned up",
			zap.String("reached_phase", string(reached)),
			zap.String("network", string(s.network)))
	}
	s.phase = PhaseTornDown
}
