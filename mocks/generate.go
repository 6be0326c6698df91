// Package mocks provides gomock implementations of the build pipeline's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	runtime := mocks.NewMockRuntime(ctrl)
//	runtime.EXPECT().Create(gomock.Any(), gomock.Any()).Return("c1", nil)
package mocks

// Job queue: Push, Pop, Size
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_mock.go github.com/isdmx/buildbox/queue Queue

// Deployment record store: Save, FindByID
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=repository_mock.go github.com/isdmx/buildbox/deployment Repository

// Source and artifact storage
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=object_store_mock.go github.com/isdmx/buildbox/storage ObjectStore

// Container engine primitives driven by the build executor
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=runtime_mock.go github.com/isdmx/buildbox/sandbox Runtime
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=command_runner_mock.go github.com/isdmx/buildbox/sandbox CommandRunner

// Worker collaborators
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=validator_mock.go github.com/isdmx/buildbox/worker Validator
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=builder_mock.go github.com/isdmx/buildbox/worker Builder
