package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/deployment"
	"github.com/isdmx/buildbox/queue"
	"github.com/isdmx/buildbox/repository"
	"github.com/isdmx/buildbox/security"
	"github.com/isdmx/buildbox/storage"
)

const connectTimeout = 5 * time.Second

// Infra holds the connections the configured backends need. Fields for
// unused backends stay nil.
type Infra struct {
	Redis    redis.UniversalClient
	Postgres *sql.DB
	SQLite   *repository.SQLite

	cfg    *config.Config
	logger *zap.Logger
}

// OpenInfra connects to every service the configuration selects.
func OpenInfra(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{cfg: cfg, logger: logger}

	if cfg.Queue.Backend == "redis" || cfg.Repository.Backend == "redis" {
		client, err := ConnectRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		infra.Redis = client
	}

	switch cfg.Repository.Backend {
	case "postgres":
		db, err := ConnectPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, errors.Join(err, infra.Close())
		}
		infra.Postgres = db
	case "sqlite":
		db, err := repository.OpenSQLite(cfg.Repository.SQLitePath)
		if err != nil {
			return nil, errors.Join(err, infra.Close())
		}
		logger.Info("sqlite opened", zap.String("path", cfg.Repository.SQLitePath))
		infra.SQLite = db
	}

	return infra, nil
}

// ConnectRedis creates a Redis client and verifies it with a ping.
//
//nolint:ireturn // repositories and queues accept any UniversalClient.
func ConnectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Credentials.RedisPassword,
		DB:       cfg.Redis.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := client.Ping(pctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	return client, nil
}

// ConnectPostgres opens the database, verifies it with a ping and applies
// migrations when postgres.run_migrations is set.
func ConnectPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Postgres.Host),
		zap.Int("port", cfg.Postgres.Port),
		zap.String("database", cfg.Postgres.Name))

	if cfg.Postgres.RunMigrations {
		if err := repository.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// PostgresDSN builds the connection URL, escaping credentials.
func PostgresDSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Postgres.User, cfg.Credentials.PostgresPassword),
		Host:   net.JoinHostPort(cfg.Postgres.Host, strconv.Itoa(cfg.Postgres.Port)),
		Path:   "/" + cfg.Postgres.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.Postgres.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Queue returns the configured job queue.
//
//nolint:ireturn // the backend is chosen at runtime.
func (i *Infra) Queue() (queue.Queue, error) {
	switch i.cfg.Queue.Backend {
	case "redis":
		return queue.NewRedis(i.Redis, i.cfg.Queue.Key), nil
	case "memory":
		i.logger.Warn("using in-memory queue, jobs are lost on restart")
		return queue.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", i.cfg.Queue.Backend)
	}
}

// Repository returns the configured deployment repository.
//
//nolint:ireturn // the backend is chosen at runtime.
func (i *Infra) Repository() (deployment.Repository, error) {
	switch i.cfg.Repository.Backend {
	case "postgres":
		return repository.NewPostgres(i.Postgres), nil
	case "sqlite":
		return i.SQLite, nil
	case "redis":
		return repository.NewRedis(i.Redis, i.cfg.Repository.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported repository backend: %s", i.cfg.Repository.Backend)
	}
}

// Close releases every open connection.
func (i *Infra) Close() error {
	var errs []error
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	if i.SQLite != nil {
		if err := i.SQLite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NewObjectStore creates the configured object store.
//
//nolint:ireturn // the backend is chosen at runtime.
func NewObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3(ctx, logger, storage.S3Options{
			Bucket:    cfg.Storage.Bucket,
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			AccessKey: cfg.Credentials.S3AccessKey,
			SecretKey: cfg.Credentials.S3SecretKey,
		})
	case "local":
		logger.Info("using local object store", zap.String("root", cfg.Storage.LocalRoot))
		return storage.NewLocalFS(cfg.Storage.LocalRoot)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// NewValidator creates the security validator from the security section.
func NewValidator(cfg *config.Config, logger *zap.Logger) *security.Validator {
	return security.NewValidator(logger, security.LimitsFromMB(cfg.Security.MaxTotalSizeMB, cfg.Security.MaxFileSizeMB))
}
