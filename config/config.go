package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Environment variable names for per-field overrides (spec.md §6).
const (
	EnvConfigPath = "PDOFLOW_CONFIG"
	EnvDBUser     = "PDOFLOW_DB_USER"
	EnvDBPassword = "PDOFLOW_DB_PASSWORD"
	EnvDBHost     = "PDOFLOW_DB_HOST"
	EnvDBPort     = "PDOFLOW_DB_PORT"
	EnvDBDatabase = "PDOFLOW_DB_DATABASE"
)

const appName = "pdoflow"
const configFileName = "config.ini"

// Database holds the [database] section of the config file: the
// connection parameters InitDB and the storage implementations need.
type Database struct {
	User     string `ini:"user"`
	Password string `ini:"password"`
	Host     string `ini:"host"`
	Port     int    `ini:"port"`
	Database string `ini:"database"`
}

// Config is the complete parsed, override-applied configuration.
type Config struct {
	Database Database
}

// DefaultConfigPath returns the per-user config file location,
// respecting XDG_CONFIG_HOME on Linux via os.UserConfigDir.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, configFileName)
}

// Load reads the INI file at path (DefaultConfigPath if empty),
// applies environment variable overrides on top, and returns the
// resulting Config. A missing file is not an error as long as enough
// environment variables are set to construct a usable Database
// section; Open will surface a connection error if not.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
			if err := file.Section("database").MapTo(&cfg.Database); err != nil {
				return nil, fmt.Errorf("config: parse [database] section of %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDBUser); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv(EnvDBHost); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv(EnvDBPort); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv(EnvDBDatabase); v != "" {
		cfg.Database.Database = v
	}
}

// DSN builds a libpq-style connection string for pgx/stdlib from the
// Database section.
func (d Database) DSN() string {
	port := d.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, port, d.Database,
	)
}
