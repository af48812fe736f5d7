package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "traveltime.yaml"

// DefaultEnvFile is the dotenv file read before the environment overlay.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom is Load with an explicit YAML path.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadDotEnv copies variables from a dotenv file into the process
// environment. Variables that are already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TRAVELTIME_PORT")
	setString(&cfg.Server.CORSOrigin, "TRAVELTIME_CORS_ORIGIN")

	// Storage
	setString(&cfg.Storage.Backend, "TRAVELTIME_STORAGE_BACKEND")
	setString(&cfg.Storage.SyncedBucket, "TRAVELTIME_STORAGE_SYNCED_BUCKET")
	setString(&cfg.Storage.LocalBucket, "TRAVELTIME_STORAGE_LOCAL_BUCKET")
	setInt64(&cfg.Storage.L1MaxSizeMB, "TRAVELTIME_STORAGE_L1_SIZE_MB")
	setDuration(&cfg.Storage.L1TTL, "TRAVELTIME_STORAGE_L1_TTL")

	// Postgres
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TRAVELTIME_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TRAVELTIME_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TRAVELTIME_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TRAVELTIME_PG_MAX_CONN_IDLE_TIME")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "TRAVELTIME_NATS_SUBJECT")

	// Directions
	setString(&cfg.Directions.Endpoint, "TRAVELTIME_DIRECTIONS_ENDPOINT")
	setString(&cfg.Directions.ClientID, "TRAVELTIME_DIRECTIONS_CLIENT_ID")
	setDuration(&cfg.Directions.Timeout, "TRAVELTIME_DIRECTIONS_TIMEOUT")
	setInt(&cfg.Directions.Concurrency, "TRAVELTIME_DIRECTIONS_CONCURRENCY")

	setInt(&cfg.Cache.MaxEntries, "TRAVELTIME_CACHE_MAX_ENTRIES")
	setDuration(&cfg.Cache.DefaultTTL, "TRAVELTIME_CACHE_DEFAULT_TTL")

	setString(&cfg.Logging.Level, "TRAVELTIME_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TRAVELTIME_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TRAVELTIME_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "TRAVELTIME_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TRAVELTIME_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "TRAVELTIME_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TRAVELTIME_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TRAVELTIME_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TRAVELTIME_RATE_MAX_IDLE_TIME")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "TRAVELTIME_OTEL_INSECURE")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")

	setBool(&cfg.MCP.Enabled, "TRAVELTIME_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "TRAVELTIME_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendNATS:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required for the nats storage backend")
		}
		if cfg.NATS.Subject == "" {
			return errors.New("nats.subject is required for the nats storage backend")
		}
		if cfg.Storage.SyncedBucket == "" || cfg.Storage.LocalBucket == "" {
			return errors.New("storage buckets are required for the nats storage backend")
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres storage backend")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("storage.backend %q must be one of memory, nats, postgres", cfg.Storage.Backend)
	}
	if cfg.Directions.Endpoint == "" {
		return errors.New("directions.endpoint is required")
	}
	if cfg.Directions.Timeout <= 0 {
		return errors.New("directions.timeout must be > 0")
	}
	if cfg.Directions.Concurrency < 1 {
		return errors.New("directions.concurrency must be >= 1")
	}
	if cfg.Cache.MaxEntries < 1 {
		return errors.New("cache.max_entries must be >= 1")
	}
	if cfg.Cache.DefaultTTL <= 0 {
		return errors.New("cache.default_ttl must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
