package sandbox

import (
	"context"
	"io"
	"time"
)

// Runtime is the container engine the executor drives. Implementations must
// be safe for concurrent use; every build acquires its own container.
type Runtime interface {
	// Create allocates a container and returns its id. All constraints in
	// spec are applied at creation time.
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, id string) error
	// Exec runs cmd inside the container, streaming combined output to
	// output, and returns the command's exit code. A non-nil error means the
	// command could not be run or was cancelled, not that it exited non-zero.
	Exec(ctx context.Context, id string, cmd []string, output io.Writer) (int, error)
	DisconnectNetwork(ctx context.Context, id, network string, force bool) error
	Stop(ctx context.Context, id string, grace time.Duration) error
	Remove(ctx context.Context, id string, force, removeVolumes bool) error
}

// Bind mounts a host path into the container.
type Bind struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ResourceLimits caps the container's memory and CPU.
type ResourceLimits struct {
	MemoryBytes     int64
	MemorySwapBytes int64
	CPUPeriod       int64
	CPUQuota        int64
}

// SecurityOptions restricts the container's privileges.
type SecurityOptions struct {
	CapDrop         []string
	NoNewPrivileges bool
}

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	Name        string
	Image       string
	Workdir     string
	Binds       []Bind
	Limits      ResourceLimits
	Security    SecurityOptions
	NetworkMode string
	DNS         []string
	Env         map[string]string
	// Cmd keeps the container alive so phase commands can be exec'd into it.
	Cmd []string
}
