package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the flat environment configuration shared by the server and
// kernelctl.
type Config struct {
	ServerPort     int           `env:"SERVER_PORT" envDefault:"8080"`
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"data/mindkernel.db"`
	APIToken       string        `env:"API_TOKEN"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	PipelineActor  string        `env:"PIPELINE_ACTOR" envDefault:"promotion-pipeline"`
	WorkerID       string        `env:"WORKER_ID" envDefault:"worker-1"`
	WorkerInterval time.Duration `env:"WORKER_INTERVAL" envDefault:"30s"`
	WorkerBatch    int           `env:"WORKER_BATCH" envDefault:"10"`
	WorkerEnabled  bool          `env:"WORKER_ENABLED" envDefault:"true"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"30s"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY" envDefault:"1h"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepEnabled   bool          `env:"SWEEP_ENABLED" envDefault:"true"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
}

// Load reads the .env file named by MINDKERNEL_ENV (or .env by default) and
// its .secret sidecar, then parses the environment.
func Load() (*Config, error) {
	envFile := os.Getenv("MINDKERNEL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the process environment still applies.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return Parse()
}

// Parse reads Config from the current environment and validates it.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.PipelineActor == "" {
		return fmt.Errorf("PIPELINE_ACTOR must not be empty")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.WorkerInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("worker and sweep intervals must be positive")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < RETRY_BASE_DELAY <= RETRY_MAX_DELAY")
	}
	// The scheduler refuses retry delays above 30 days.
	if c.RetryMaxDelay > 720*time.Hour {
		return fmt.Errorf("RETRY_MAX_DELAY must not exceed 720h")
	}
	return nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
