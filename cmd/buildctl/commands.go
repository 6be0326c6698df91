package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/isdmx/buildbox/app"
	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/deployment"
	"github.com/isdmx/buildbox/logger"
	"github.com/isdmx/buildbox/repository"
)

type cli struct {
	configPath string
	clock      deployment.Clock
}

func newRootCmd() *cobra.Command {
	c := &cli{clock: deployment.RealClock{}}

	root := &cobra.Command{
		Use:           "buildctl",
		Short:         "Administer the buildbox build queue and deployment records",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to buildbox.yaml")

	root.AddCommand(
		c.enqueueCmd(),
		c.queueSizeCmd(),
		c.statusCmd(),
		c.migrateCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, log, nil
}

// withInfra opens the configured connections for the duration of fn.
func (c *cli) withInfra(ctx context.Context, fn func(*app.Infra) error) (err error) {
	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	infra, err := app.OpenInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, infra.Close())
	}()
	return fn(infra)
}

func (c *cli) enqueueCmd() *cobra.Command {
	var create bool
	var sourcePath string

	cmd := &cobra.Command{
		Use:   "enqueue DEPLOYMENT_ID...",
		Short: "Push deployment ids onto the build queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if create && len(args) != 1 {
				return errors.New("--create takes exactly one deployment id")
			}
			if create && sourcePath == "" {
				return errors.New("--create requires --source-path")
			}

			ctx := cmd.Context()
			return c.withInfra(ctx, func(infra *app.Infra) error {
				q, err := infra.Queue()
				if err != nil {
					return err
				}
				repo, err := infra.Repository()
				if err != nil {
					return err
				}

				for _, id := range args {
					if create {
						if err := createDeployment(ctx, repo, id, sourcePath, c.clock); err != nil {
							return err
						}
					} else if _, err := repo.FindByID(ctx, id); err != nil {
						return fmt.Errorf("deployment %s: %w", id, err)
					}

					if err := q.Push(ctx, id); err != nil {
						return fmt.Errorf("enqueue %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create a QUEUED deployment record before enqueueing")
	cmd.Flags().StringVar(&sourcePath, "source-path", "", "object storage prefix holding the project source (with --create)")
	return cmd
}

func createDeployment(ctx context.Context, repo deployment.Repository, id, sourcePath string, clock deployment.Clock) error {
	_, err := repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("deployment %s already exists", id)
	case !errors.Is(err, deployment.ErrNotFound):
		return fmt.Errorf("deployment %s: %w", id, err)
	}
	return repo.Save(ctx, deployment.New(id, sourcePath, clock.Now()))
}

func (c *cli) queueSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue-size",
		Short: "Print the number of waiting build jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withInfra(cmd.Context(), func(infra *app.Infra) error {
				q, err := infra.Queue()
				if err != nil {
					return err
				}
				n, err := q.Size(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status DEPLOYMENT_ID",
		Short: "Print a deployment record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withInfra(cmd.Context(), func(infra *app.Infra) error {
				repo, err := infra.Repository()
				if err != nil {
					return err
				}
				d, err := repo.FindByID(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("deployment %s: %w", args[0], err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			})
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Repository.Backend != "postgres" {
				fmt.Fprintf(cmd.OutOrStdout(), "repository backend %s has no migrations\n", cfg.Repository.Backend)
				return nil
			}

			cfg.Postgres.RunMigrations = false
			db, err := app.ConnectPostgres(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML (credentials omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
