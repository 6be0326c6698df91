package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigPath is an explicit config file location; empty means search the
// default locations.
type ConfigPath string

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Sandbox    SandboxConfig    `mapstructure:"sandbox" yaml:"sandbox"`
	Security   SecurityConfig   `mapstructure:"security" yaml:"security"`
	Worker     WorkerConfig     `mapstructure:"worker" yaml:"worker"`
	Queue      QueueConfig      `mapstructure:"queue" yaml:"queue"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Postgres   PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`

	// Credentials never come from the config file.
	Credentials Credentials `mapstructure:"-" yaml:"-"`
}

// ServerConfig holds the operator surface configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport"`
	HTTPPort  int    `mapstructure:"http_port" yaml:"http_port"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

// SandboxConfig holds build container configuration
type SandboxConfig struct {
	Backend         string   `mapstructure:"backend" yaml:"backend"`
	Image           string   `mapstructure:"image" yaml:"image"`
	Workdir         string   `mapstructure:"workdir" yaml:"workdir"`
	MemoryMB        int      `mapstructure:"memory_mb" yaml:"memory_mb"`
	CPUPeriod       int64    `mapstructure:"cpu_period" yaml:"cpu_period"`
	CPUQuota        int64    `mapstructure:"cpu_quota" yaml:"cpu_quota"`
	PhaseTimeoutSec int      `mapstructure:"phase_timeout_sec" yaml:"phase_timeout_sec"`
	StopGraceSec    int      `mapstructure:"stop_grace_sec" yaml:"stop_grace_sec"`
	Network         string   `mapstructure:"network" yaml:"network"`
	DNS             string   `mapstructure:"dns" yaml:"dns"`
	// Env entries are KEY=VALUE; a list keeps keys case-sensitive.
	Env             []string `mapstructure:"env" yaml:"env"`
}

// SecurityConfig holds the pre-flight size ceilings
type SecurityConfig struct {
	MaxTotalSizeMB int64 `mapstructure:"max_total_size_mb" yaml:"max_total_size_mb"`
	MaxFileSizeMB  int64 `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
}

// WorkerConfig holds consumer loop configuration
type WorkerConfig struct {
	PollTimeoutSec int    `mapstructure:"poll_timeout_sec" yaml:"poll_timeout_sec"`
	WorkspaceDir   string `mapstructure:"workspace_dir" yaml:"workspace_dir"`
	ArtifactPrefix string `mapstructure:"artifact_prefix" yaml:"artifact_prefix"`
}

// QueueConfig selects the job queue
type QueueConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Key     string `mapstructure:"key" yaml:"key"`
}

// RepositoryConfig selects the deployment record store
type RepositoryConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// StorageConfig selects the object store
type StorageConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	LocalRoot string `mapstructure:"local_root" yaml:"local_root"`
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          int    `mapstructure:"port" yaml:"port"`
	User          string `mapstructure:"user" yaml:"user"`
	Name          string `mapstructure:"name" yaml:"name"`
	SSLMode       string `mapstructure:"sslmode" yaml:"sslmode"`
	RunMigrations bool   `mapstructure:"run_migrations" yaml:"run_migrations"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	DB   int    `mapstructure:"db" yaml:"db"`
}

// Credentials are secrets read from the environment only.
type Credentials struct {
	PostgresPassword string `env:"BUILDBOX_POSTGRES_PASSWORD"`
	RedisPassword    string `env:"BUILDBOX_REDIS_PASSWORD"`
	S3AccessKey      string `env:"BUILDBOX_S3_ACCESS_KEY"`
	S3SecretKey      string `env:"BUILDBOX_S3_SECRET_KEY"`
}

// New loads and validates the application configuration
func New(path ConfigPath) (*Config, error) {
	return Load(string(path))
}

// Load reads configuration from path, or from buildbox.yaml in the working
// directory or ./config when path is empty. BUILDBOX_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("buildbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("BUILDBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := env.Parse(&config.Credentials); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// loadDotEnv exports variables from ./.env when present. Variables already
// set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "none")
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	v.SetDefault("sandbox.backend", "docker")
	v.SetDefault("sandbox.image", "node:18-alpine")
	v.SetDefault("sandbox.workdir", "/project")
	v.SetDefault("sandbox.memory_mb", 1024)
	v.SetDefault("sandbox.cpu_period", 100000)
	v.SetDefault("sandbox.cpu_quota", 100000)
	v.SetDefault("sandbox.phase_timeout_sec", 300)
	v.SetDefault("sandbox.stop_grace_sec", 5)
	v.SetDefault("sandbox.network", "bridge")
	v.SetDefault("sandbox.dns", "0.0.0.0")
	v.SetDefault("sandbox.env", []string{"NODE_ENV=production", "CI=true"})

	v.SetDefault("security.max_total_size_mb", 500)
	v.SetDefault("security.max_file_size_mb", 100)

	v.SetDefault("worker.poll_timeout_sec", 5)
	v.SetDefault("worker.workspace_dir", os.TempDir())
	v.SetDefault("worker.artifact_prefix", "built")

	v.SetDefault("queue.backend", "redis")
	v.SetDefault("queue.key", "build_queue")

	v.SetDefault("repository.backend", "postgres")
	v.SetDefault("repository.sqlite_path", "buildbox.db")
	v.SetDefault("repository.redis_prefix", "deployment:")

	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.local_root", "artifacts")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "buildbox")
	v.SetDefault("postgres.name", "buildbox")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.run_migrations", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	switch c.Server.Transport {
	case "none", "stdio", "http":
	default:
		return fmt.Errorf("invalid server.transport: %s, must be 'none', 'stdio' or 'http'", c.Server.Transport)
	}
	if c.Server.Transport == "http" && c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive, got: %d", c.Server.HTTPPort)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	if err := c.validateSandbox(); err != nil {
		return err
	}

	if c.Security.MaxTotalSizeMB <= 0 {
		return fmt.Errorf("security.max_total_size_mb must be positive, got: %d", c.Security.MaxTotalSizeMB)
	}
	if c.Security.MaxFileSizeMB <= 0 {
		return fmt.Errorf("security.max_file_size_mb must be positive, got: %d", c.Security.MaxFileSizeMB)
	}

	if c.Worker.PollTimeoutSec <= 0 {
		return fmt.Errorf("worker.poll_timeout_sec must be positive, got: %d", c.Worker.PollTimeoutSec)
	}
	if c.Worker.ArtifactPrefix == "" {
		return errors.New("worker.artifact_prefix must not be empty")
	}

	if c.Queue.Backend != "redis" && c.Queue.Backend != "memory" {
		return fmt.Errorf("unsupported queue.backend: %s", c.Queue.Backend)
	}

	switch c.Repository.Backend {
	case "postgres", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported repository.backend: %s", c.Repository.Backend)
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the s3 backend")
		}
	case "local":
		if c.Storage.LocalRoot == "" {
			return errors.New("storage.local_root must be set for the local backend")
		}
	default:
		return fmt.Errorf("unsupported storage.backend: %s", c.Storage.Backend)
	}

	return nil
}

func (c *Config) validateSandbox() error {
	if c.Sandbox.Backend != "docker" && c.Sandbox.Backend != "podman" {
		return fmt.Errorf("unsupported sandbox.backend: %s", c.Sandbox.Backend)
	}
	if c.Sandbox.Image == "" {
		return errors.New("sandbox.image must not be empty")
	}
	if c.Sandbox.PhaseTimeoutSec <= 0 {
		return fmt.Errorf("sandbox.phase_timeout_sec must be positive, got: %d", c.Sandbox.PhaseTimeoutSec)
	}
	if c.Sandbox.StopGraceSec <= 0 {
		return fmt.Errorf("sandbox.stop_grace_sec must be positive, got: %d", c.Sandbox.StopGraceSec)
	}
	if c.Sandbox.MemoryMB <= 0 {
		return fmt.Errorf("sandbox.memory_mb must be positive, got: %d", c.Sandbox.MemoryMB)
	}
	if c.Sandbox.CPUPeriod <= 0 {
		return fmt.Errorf("sandbox.cpu_period must be positive, got: %d", c.Sandbox.CPUPeriod)
	}
	if c.Sandbox.CPUQuota <= 0 {
		return fmt.Errorf("sandbox.cpu_quota must be positive, got: %d", c.Sandbox.CPUQuota)
	}
	if c.Sandbox.CPUQuota > c.Sandbox.CPUPeriod {
		return fmt.Errorf("sandbox.cpu_quota (%d) must not exceed sandbox.cpu_period (%d)", c.Sandbox.CPUQuota, c.Sandbox.CPUPeriod)
	}
	for _, kv := range c.Sandbox.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("invalid sandbox.env entry: %q, must be KEY=VALUE", kv)
		}
	}
	return nil
}

// SandboxEnv returns sandbox.env as a map.
func (c *Config) SandboxEnv() map[string]string {
	out := make(map[string]string, len(c.Sandbox.Env))
	for _, kv := range c.Sandbox.Env {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			out[k] = v
		}
	}
	return out
}

// GetPhaseTimeout returns the per-phase command timeout as a duration
func (c *Config) GetPhaseTimeout() time.Duration {
	return time.Duration(c.Sandbox.PhaseTimeoutSec) * time.Second
}

// GetStopGrace returns the container stop grace period as a duration
func (c *Config) GetStopGrace() time.Duration {
	return time.Duration(c.Sandbox.StopGraceSec) * time.Second
}

// GetPollTimeout returns the queue blocking-pop timeout as a duration
func (c *Config) GetPollTimeout() time.Duration {
	return time.Duration(c.Worker.PollTimeoutSec) * time.Second
}
