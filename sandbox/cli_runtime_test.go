package sandbox_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/buildbox/mocks"
	"github.com/isdmx/buildbox/sandbox"
)

func TestCLIRuntime_CreateComposesConstraints(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)
	rt := sandbox.NewCLIRuntime(zaptest.NewLogger(t), sandbox.BackendDocker, sandbox.WithCommandRunner(runner))

	want := []string{
		"docker", "create",
		"--name", "build-1",
		"--workdir", "/project",
		"--volume", "/tmp/build-1:/project:rw",
		"--memory", "1073741824b",
		"--memory-swap", "1073741824b",
		"--cpu-period", "100000",
		"--cpu-quota", "100000",
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
		"--network", "bridge",
		"--dns", "0.0.0.0",
		"--env", "CI=true",
		"--env", "NODE_ENV=production",
		"node:18-alpine", "tail", "-f", "/dev/null",
	}
	runner.EXPECT().RunCommand(gomock.Any(), want).Return("abc123\n", "", 0, nil)

	id, err := rt.Create(context.Background(), sandbox.ContainerSpec{
		Name:    "build-1",
		Image:   "node:18-alpine",
		Workdir: "/project",
		Binds:   []sandbox.Bind{{Source: "/tmp/build-1", Target: "/project"}},
		Limits: sandbox.ResourceLimits{
			MemoryBytes:     1 << 30,
			MemorySwapBytes: 1 << 30,
			CPUPeriod:       100000,
			CPUQuota:        100000,
		},
		Security:    sandbox.SecurityOptions{CapDrop: []string{"ALL"}, NoNewPrivileges: true},
		NetworkMode: "bridge",
		DNS:         []string{"0.0.0.0"},
		Env:         map[string]string{"NODE_ENV": "production", "CI": "true"},
		Cmd:         []string{"tail", "-f", "/dev/null"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestCLIRuntime_CreateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)
	rt := sandbox.NewCLIRuntime(zaptest.NewLogger(t), sandbox.BackendPodman, sandbox.WithCommandRunner(runner))

	runner.EXPECT().RunCommand(gomock.Any(), gomock.Any()).Return("", "Error: image not known", 125, nil)

	_, err := rt.Create(context.Background(), sandbox.ContainerSpec{Name: "n", Image: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman create exited with code 125")
	assert.Contains(t, err.Error(), "image not known")
}

func TestCLIRuntime_LifecycleCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)
	rt := sandbox.NewCLIRuntime(zaptest.NewLogger(t), sandbox.BackendDocker, sandbox.WithCommandRunner(runner))
	ctx := context.Background()

	gomock.InOrder(
		runner.EXPECT().RunCommand(gomock.Any(), []string{"docker", "start", "c1"}).Return("c1\n", "", 0, nil),
		runner.EXPECT().RunCommand(gomock.Any(), []string{"docker", "network", "disconnect", "--force", "bridge", "c1"}).Return("", "", 0, nil),
		runner.EXPECT().RunCommand(gomock.Any(), []string{"docker", "stop", "--time", "5", "c1"}).Return("c1\n", "", 0, nil),
		runner.EXPECT().RunCommand(gomock.Any(), []string{"docker", "rm", "--force", "--volumes", "c1"}).Return("c1\n", "", 0, nil),
	)

	require.NoError(t, rt.Start(ctx, "c1"))
	require.NoError(t, rt.DisconnectNetwork(ctx, "c1", "bridge", true))
	require.NoError(t, rt.Stop(ctx, "c1", 5*time.Second))
	require.NoError(t, rt.Remove(ctx, "c1", true, true))
}

func TestCLIRuntime_ExecStreamsOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)
	rt := sandbox.NewCLIRuntime(zaptest.NewLogger(t), sandbox.BackendDocker, sandbox.WithCommandRunner(runner))

	var out bytes.Buffer
	runner.EXPECT().
		StreamCommand(gomock.Any(), []string{"docker", "exec", "c1", "sh", "-c", "npm run build"}, &out).
		Return(3, nil)

	code, err := rt.Exec(context.Background(), "c1", []string{"sh", "-c", "npm run build"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}
