package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/sandbox"
	"github.com/isdmx/buildbox/storage"
	"github.com/isdmx/buildbox/worker"
)

// Module provides the worker and everything it depends on. It expects a
// *config.Config and a *zap.Logger to be provided elsewhere.
var Module = fx.Module("buildbox",
	fx.Provide(
		provideInfra,
		(*Infra).Queue,
		(*Infra).Repository,
		provideObjectStore,
		fx.Annotate(NewValidator, fx.As(new(worker.Validator))),
		sandbox.NewRuntime,
		fx.Annotate(sandbox.NewBuildExecutor, fx.As(new(worker.Builder))),
		worker.NewFromConfig,
	),
)

func provideInfra(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	infra, err := OpenInfra(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return infra.Close()
		},
	})
	return infra, nil
}

//nolint:ireturn // the backend is chosen at runtime.
func provideObjectStore(cfg *config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	return NewObjectStore(context.Background(), cfg, logger)
}
