package config

import (
	"flag"
	"fmt"
	"io"
)

// CLIFlags holds command-line overrides. A nil field means the flag was
// not passed and the lower layers decide.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
	Backend    *string
	Endpoint   *string
}

// ParseFlags parses serve flags. Short aliases: -c config, -p port.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("traveltime", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configPath, port, logLevel, dsn, natsURL, backend, endpoint string
	fs.StringVar(&configPath, "config", "", "path to YAML config")
	fs.StringVar(&configPath, "c", "", "shorthand for --config")
	fs.StringVar(&port, "port", "", "HTTP listen port")
	fs.StringVar(&port, "p", "", "shorthand for --port")
	fs.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&dsn, "dsn", "", "PostgreSQL DSN")
	fs.StringVar(&natsURL, "nats-url", "", "NATS server URL")
	fs.StringVar(&backend, "storage", "", "storage backend: memory, nats or postgres")
	fs.StringVar(&endpoint, "endpoint", "", "directions endpoint URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = &configPath
		case "port", "p":
			flags.Port = &port
		case "log-level":
			flags.LogLevel = &logLevel
		case "dsn":
			flags.DSN = &dsn
		case "nats-url":
			flags.NatsURL = &natsURL
		case "storage":
			flags.Backend = &backend
		case "endpoint":
			flags.Endpoint = &endpoint
		}
	})
	return flags, nil
}

// LoadWithCLI loads configuration with CLI flags as the highest layer.
// It returns the YAML path that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, path, fmt.Errorf("config dotenv: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
	if flags.Backend != nil {
		cfg.Storage.Backend = *flags.Backend
	}
	if flags.Endpoint != nil {
		cfg.Directions.Endpoint = *flags.Endpoint
	}
}
