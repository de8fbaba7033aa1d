package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"promptforge"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"promptforge"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"redis:6379"`

	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	EnableNSQ  bool   `envconfig:"ENABLE_NSQ" default:"true"`

	EnableAPI    bool `envconfig:"ENABLE_API" default:"true"`
	EnableWorker bool `envconfig:"ENABLE_WORKER" default:"true"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Queue tunables. The lease must exceed the worst-case handler runtime,
	// or a still-running job becomes claimable by a second worker.
	JobLeaseSeconds      int    `envconfig:"JOB_LEASE_SECONDS" default:"300"`
	JobMaxAttempts       int    `envconfig:"JOB_MAX_ATTEMPTS" default:"5"`
	RetryBackoffSeconds  int    `envconfig:"RETRY_BACKOFF_SECONDS" default:"60"`
	RetryBackoffStrategy string `envconfig:"RETRY_BACKOFF_STRATEGY" default:"constant"`
	WorkerIntervalMS     int    `envconfig:"WORKER_INTERVAL_MS" default:"1000"`

	// Metering & rate limiting.
	GenerateCost           int `envconfig:"GENERATE_COST" default:"1"`
	GuestQuota             int `envconfig:"RATE_GUEST_QUOTA" default:"10"`
	GuestWindowSeconds     int `envconfig:"RATE_GUEST_WINDOW_SECONDS" default:"60"`
	FreeQuota              int `envconfig:"RATE_FREE_QUOTA" default:"30"`
	FreeWindowSeconds      int `envconfig:"RATE_FREE_WINDOW_SECONDS" default:"60"`
	ProQuota               int `envconfig:"RATE_PRO_QUOTA" default:"120"`
	ProWindowSeconds       int `envconfig:"RATE_PRO_WINDOW_SECONDS" default:"60"`
	TemplateCacheTTLSecond int `envconfig:"TEMPLATE_CACHE_TTL_SECONDS" default:"300"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: REDIS_ADDR", ErrMissingRequired)
	}
	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("%w: JOB_MAX_ATTEMPTS must be at least 1", ErrMissingRequired)
	}
	if c.RetryBackoffStrategy != "constant" && c.RetryBackoffStrategy != "exponential" {
		return fmt.Errorf("%w: RETRY_BACKOFF_STRATEGY must be constant or exponential", ErrMissingRequired)
	}
	return nil
}

func (c *Config) JobLease() time.Duration {
	return time.Duration(c.JobLeaseSeconds) * time.Second
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.WorkerIntervalMS) * time.Millisecond
}

func (c *Config) TemplateCacheTTL() time.Duration {
	return time.Duration(c.TemplateCacheTTLSecond) * time.Second
}
