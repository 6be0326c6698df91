package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/buildbox/app"
	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/logger"
	"github.com/isdmx/buildbox/mcpserver"
	"github.com/isdmx/buildbox/worker"
)

func main() {
	flags := pflag.NewFlagSet("buildworker", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to buildbox.yaml (default: ./buildbox.yaml or ./config/buildbox.yaml)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	application := fx.New(
		fx.Supply(config.ConfigPath(*configPath)),

		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Operator surface
			mcpserver.New,
		),

		// Queue, repository, storage, validator, executor and worker
		app.Module,

		fx.Invoke(runWorker, runOperatorSurface),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	application.Run()
}

// background runs fn in a goroutine for the lifetime of the fx app.
// OnStop cancels fn's context and waits for it to return.
func background(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					log.Error(name+" stopped unexpectedly", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return fmt.Errorf("%s did not stop: %w", name, stopCtx.Err())
			}
		},
	})
}

func runWorker(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.Logger, w *worker.Worker) {
	background(lc, shutdowner, log, "build worker", w.Run)
}

func runOperatorSurface(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.Logger, cfg *config.Config, server *mcpserver.MCPServer) {
	switch cfg.Server.Transport {
	case "stdio":
		background(lc, shutdowner, log, "MCP stdio server", server.ServeStdio)
	case "http":
		background(lc, shutdowner, log, "MCP HTTP server", server.ListenAndServe)
	default:
		log.Info("operator surface disabled")
	}
}
