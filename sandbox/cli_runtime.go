package sandbox

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Supported CLI binaries.
const (
	BackendDocker = "docker"
	BackendPodman = "podman"
)

// CLIRuntime implements Runtime by shelling out to the docker or podman CLI.
// Both accept the same flags for everything the executor needs.
type CLIRuntime struct {
	logger    *zap.Logger
	binary    string
	cmdRunner CommandRunner
}

// CLIRuntimeOption defines a functional option for CLIRuntime
type CLIRuntimeOption func(*CLIRuntime)

// WithCommandRunner sets the CommandRunner for CLIRuntime
func WithCommandRunner(cmdRunner CommandRunner) CLIRuntimeOption {
	return func(r *CLIRuntime) {
		r.cmdRunner = cmdRunner
	}
}

// NewCLIRuntime creates a CLIRuntime for the given binary ("docker" or "podman").
func NewCLIRuntime(logger *zap.Logger, binary string, opts ...CLIRuntimeOption) *CLIRuntime {
	r := &CLIRuntime{
		logger:    logger,
		binary:    binary,
		cmdRunner: &RealCommandRunner{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create runs `<binary> create` with every constraint in spec and returns the container id.
func (r *CLIRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	stdout, err := r.run(ctx, createArgs(spec)...)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(stdout)
	if id == "" {
		return "", fmt.Errorf("%s create returned no container id", r.binary)
	}
	return id, nil
}

// Start starts a created container.
func (r *CLIRuntime) Start(ctx context.Context, id string) error {
	_, err := r.run(ctx, "start", id)
	return err
}

// Exec runs cmd inside the container and returns its exit code.
func (r *CLIRuntime) Exec(ctx context.Context, id string, cmd []string, output io.Writer) (int, error) {
	args := append([]string{r.binary, "exec", id}, cmd...)
	return r.cmdRunner.StreamCommand(ctx, args, output)
}

// DisconnectNetwork detaches the container from network.
func (r *CLIRuntime) DisconnectNetwork(ctx context.Context, id, network string, force bool) error {
	args := []string{"network", "disconnect"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, network, id)
	_, err := r.run(ctx, args...)
	return err
}

// Stop stops the container, killing it after grace.
func (r *CLIRuntime) Stop(ctx context.Context, id string, grace time.Duration) error {
	seconds := int(grace / time.Second)
	_, err := r.run(ctx, "stop", "--time", strconv.Itoa(seconds), id)
	return err
}

// Remove deletes the container and, optionally, its anonymous volumes.
func (r *CLIRuntime) Remove(ctx context.Context, id string, force, removeVolumes bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "--force")
	}
	if removeVolumes {
		args = append(args, "--volumes")
	}
	args = append(args, id)
	_, err := r.run(ctx, args...)
	return err
}

func (r *CLIRuntime) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{r.binary}, args...)
	stdout, stderr, exitCode, err := r.cmdRunner.RunCommand(ctx, full)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", r.binary, args[0], err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%s %s exited with code %d: %s", r.binary, args[0], exitCode, strings.TrimSpace(stderr))
	}
	r.logger.Debug("container command completed", zap.Strings("args", full))
	return stdout, nil
}

func createArgs(spec ContainerSpec) []string {
	args := []string{"create", "--name", spec.Name}

	if spec.Workdir != "" {
		args = append(args, "--workdir", spec.Workdir)
	}
	for _, b := range spec.Binds {
		mode := "rw"
		if b.ReadOnly {
			mode = "ro"
		}
		args = append(args, "--volume", fmt.Sprintf("%s:%s:%s", b.Source, b.Target, mode))
	}

	if spec.Limits.MemoryBytes > 0 {
		args = append(args, "--memory", fmt.Sprintf("%db", spec.Limits.MemoryBytes))
	}
	if spec.Limits.MemorySwapBytes > 0 {
		args = append(args, "--memory-swap", fmt.Sprintf("%db", spec.Limits.MemorySwapBytes))
	}
	if spec.Limits.CPUPeriod > 0 {
		args = append(args, "--cpu-period", strconv.FormatInt(spec.Limits.CPUPeriod, 10))
	}
	if spec.Limits.CPUQuota > 0 {
		args = append(args, "--cpu-quota", strconv.FormatInt(spec.Limits.CPUQuota, 10))
	}

	for _, c := range spec.Security.CapDrop {
		args = append(args, "--cap-drop", c)
	}
	if spec.Security.NoNewPrivileges {
		args = append(args, "--security-opt", "no-new-privileges")
	}

	if spec.NetworkMode != "" {
		args = append(args, "--network", spec.NetworkMode)
	}
	for _, dns := range spec.DNS {
		args = append(args, "--dns", dns)
	}

	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--env", fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}

	args = append(args, spec.Image)
	args = append(args, spec.Cmd...)
	return args
}
