// Package config manages ledger configuration and the .ledger directory structure.
// It handles loading, saving, and initializing the book configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	LedgerDir    = ".ledger"
	ConfigFile   = "config"
	DatabaseFile = "ledger.db"
	PluginsDir   = "plugins"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the ledger configuration
type Config struct {
	Driver     string `toml:"driver"`
	DSN        string `toml:"dsn,omitempty"` // empty means the SQLite file inside .ledger
	PluginsDir string `toml:"plugins_dir,omitempty"`
	LogLevel   string `toml:"log_level,omitempty"`
	LogFormat  string `toml:"log_format,omitempty"`
	path       string // path to .ledger directory
}

// FindRoot finds the .ledger directory by walking up from the current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findRootFrom(dir)
}

func findRootFrom(dir string) (string, error) {
	for {
		ledgerPath := filepath.Join(dir, LedgerDir)
		if info, err := os.Stat(ledgerPath); err == nil && info.IsDir() {
			return ledgerPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a ledger book (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .ledger directory
func Load() (*Config, error) {
	ledgerPath, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(ledgerPath)
}

// LoadFrom loads the configuration of the given .ledger directory
func LoadFrom(ledgerPath string) (*Config, error) {
	configPath := filepath.Join(ledgerPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = ledgerPath
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if v := os.Getenv("LEDGER_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate checks the driver and its data source
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("driver %q requires a dsn", c.Driver)
		}
	default:
		return fmt.Errorf("unsupported driver %q (expected %s or %s)", c.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// LedgerPath returns the path to the .ledger directory
func (c *Config) LedgerPath() string {
	return c.path
}

// DatabasePath returns the path to the default SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// DataSource returns the DSN to open: the configured one, or the SQLite
// file inside .ledger
func (c *Config) DataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.DatabasePath()
}

// PluginsPath returns the directory plugin manifests are read from
func (c *Config) PluginsPath() string {
	if c.PluginsDir == "" {
		return filepath.Join(c.path, PluginsDir)
	}
	if filepath.IsAbs(c.PluginsDir) {
		return c.PluginsDir
	}
	return filepath.Join(filepath.Dir(c.path), c.PluginsDir)
}

// Initialize creates a new .ledger directory in dir with initial configuration
func Initialize(dir, driver, dsn string) (*Config, error) {
	ledgerPath := filepath.Join(dir, LedgerDir)

	// Check if already initialized
	if _, err := os.Stat(ledgerPath); err == nil {
		return nil, fmt.Errorf("ledger book already exists")
	}

	cfg := &Config{
		Driver: driver,
		DSN:    dsn,
		path:   ledgerPath,
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create directories
	if err := os.MkdirAll(ledgerPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .ledger directory: %w", err)
	}
	if err := os.MkdirAll(cfg.PluginsPath(), 0755); err != nil {
		os.RemoveAll(ledgerPath)
		return nil, fmt.Errorf("failed to create plugins directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(ledgerPath)
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}
