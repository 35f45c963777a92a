// Package config loads the server's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Zero values in the file fall back to
// Default.
type Config struct {
	Addr      string        `yaml:"addr"`
	DBPath    string        `yaml:"db_path"`
	WatchDir  string        `yaml:"watch_dir"`
	ExportKey string        `yaml:"export_key"`
	PageSize  int           `yaml:"page_size"`
	Debounce  time.Duration `yaml:"debounce"`
	Settle    time.Duration `yaml:"settle"`
	Encoding  string        `yaml:"encoding"`
	Delimiter string        `yaml:"delimiter"`
	TLS       TLS           `yaml:"tls"`
}

// TLS configures HTTPS for serve. Leave it empty for plain HTTP.
type TLS struct {
	CertFile   string   `yaml:"cert_file"`
	KeyFile    string   `yaml:"key_file"`
	SelfSigned bool     `yaml:"self_signed"`
	Hosts      []string `yaml:"hosts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":8430",
		DBPath:   "roll.db",
		PageSize: 50,
		Debounce: 300 * time.Millisecond,
		Settle:   2 * time.Second,
	}
}

// Load reads path over the defaults, then applies ROLL_* environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ROLL_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("ROLL_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ROLL_WATCH_DIR"); v != "" {
		cfg.WatchDir = v
	}
	if v := os.Getenv("ROLL_EXPORT_KEY"); v != "" {
		cfg.ExportKey = v
	}
	if v := os.Getenv("ROLL_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROLL_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	if c.Debounce < 0 || c.Settle < 0 {
		return errors.New("debounce and settle must not be negative")
	}
	if c.Delimiter != "" && len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}
