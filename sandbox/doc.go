// Package sandbox builds untrusted source trees inside isolated containers.
//
// The Executor drives one container per build through a fixed lifecycle:
// create (resource-capped, all capabilities dropped, DNS disabled, bridged
// network), start, install dependencies with network, detach the network,
// build without network, and tear down. Teardown runs on every exit path and
// its own failures are logged, never returned.
//
// Containers are managed through the Runtime port. CLIRuntime implements it
// on top of the docker or podman command line.
//
// Usage:
//
//	runtime, err := sandbox.NewRuntime(logger, cfg)
//	executor := sandbox.NewBuildExecutor(logger, cfg, runtime)
//	err = executor.Build(ctx, "/tmp/build-123", sandbox.FrameworkReact)
package sandbox
