package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all sipledger configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Reminders RemindersConfig `toml:"reminders"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "postgres" or "sqlite"
	DSN    string `toml:"dsn"`    // connection string, or file path for sqlite
}

// ServerConfig holds the gRPC listener settings.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	APIToken string `toml:"api_token,omitempty"`
}

// SchedulerConfig holds the periodic scheduler loop settings.
type SchedulerConfig struct {
	Interval   Duration `toml:"interval"`
	Timeout    Duration `toml:"timeout"`
	Workers    int      `toml:"workers"`
	RunOnStart bool     `toml:"run_on_start"`
}

// RemindersConfig holds reminder settings.
type RemindersConfig struct {
	Enabled  bool   `toml:"enabled"`
	Currency string `toml:"currency"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Duration is a time.Duration written as "24h" or "90s" in the config file.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			APIToken: "dev-token",
		},
		Scheduler: SchedulerConfig{
			Interval:   Duration{24 * time.Hour},
			Timeout:    Duration{10 * time.Minute},
			RunOnStart: true,
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Currency: "INR",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Path returns the config file path from SIPLEDGER_CONFIG, or "" when unset.
func Path() string {
	return os.Getenv("SIPLEDGER_CONFIG")
}

// Load reads the config file at path, returning defaults if it doesn't exist,
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config: %w", err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverSQLite && c.Database.DSN == "" {
		return fmt.Errorf("sqlite driver needs a database file path")
	}
	if c.Scheduler.Interval.Duration < 0 || c.Scheduler.Timeout.Duration < 0 {
		return fmt.Errorf("scheduler durations cannot be negative")
	}
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler workers cannot be negative")
	}
	return nil
}

// applyEnv lets the environment override the file, Docker style.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		cfg.Database.DSN = v
	}
	if cfg.Database.Driver == DriverPostgres && cfg.Database.DSN == "" {
		cfg.Database.DSN = postgresDSNFromEnv()
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// postgresDSNFromEnv builds a connection string from individual vars
func postgresDSNFromEnv() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "postgres"),
		envOr("DB_NAME", "sipledger"),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
