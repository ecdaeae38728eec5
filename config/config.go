package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pairtrader/screen"
	"github.com/rustyeddy/pairtrader/sim"
	"github.com/rustyeddy/pairtrader/spread"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvDBPath   = "PAIRTRADER_DB"
	EnvLogLevel = "PAIRTRADER_LOG_LEVEL"
	EnvFeedURL  = "PAIRTRADER_FEED_URL"
)

// Config represents the complete pipeline configuration
type Config struct {
	Screen   screen.Options `json:"screen" yaml:"screen"`
	Spread   spread.Options `json:"spread" yaml:"spread"`
	Strategy sim.Options    `json:"strategy" yaml:"strategy"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Report   ReportConfig   `json:"report" yaml:"report"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// StoreConfig locates the price table
type StoreConfig struct {
	DBPath   string `json:"db_path" yaml:"db_path"`
	TableCSV string `json:"table_csv,omitempty" yaml:"table_csv,omitempty"` // read instead of the DB when set
}

// ReportConfig selects the report sinks. Empty paths are skipped.
type ReportConfig struct {
	CSVPath   string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	PairsPath string `json:"pairs_path,omitempty" yaml:"pairs_path,omitempty"`
	OrgPath   string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
	RecordDB  bool   `json:"record_db" yaml:"record_db"`
	Top       int    `json:"top" yaml:"top"` // pairs shown in the console summary, 0 = all
}

// FeedConfig configures the live price recorder
type FeedConfig struct {
	URL              string   `json:"url" yaml:"url"`
	Symbols          []string `json:"symbols,omitempty" yaml:"symbols,omitempty"` // empty records every symbol
	MaxSnapshots     int      `json:"max_snapshots" yaml:"max_snapshots"`          // 0 records until interrupted
	HandshakeTimeout string   `json:"handshake_timeout" yaml:"handshake_timeout"`  // e.g. "15s"
}

// ParseHandshakeTimeout converts the timeout string to time.Duration
func (f FeedConfig) ParseHandshakeTimeout() (time.Duration, error) {
	if f.HandshakeTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(f.HandshakeTimeout)
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// LoadFromFile loads configuration from a file (JSON or YAML). Fields
// missing from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides values from the environment. getenv is os.Getenv
// outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDBPath); v != "" {
		c.Store.DBPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvFeedURL); v != "" {
		c.Feed.URL = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Screen.Validate(); err != nil {
		return err
	}
	if err := c.Spread.Validate(); err != nil {
		return err
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if c.Store.DBPath == "" && c.Store.TableCSV == "" {
		return fmt.Errorf("store.db_path or store.table_csv is required")
	}
	if c.Report.RecordDB && c.Store.DBPath == "" {
		return fmt.Errorf("report.record_db requires store.db_path")
	}
	if c.Report.Top < 0 {
		return fmt.Errorf("report.top must not be negative")
	}
	if c.Feed.MaxSnapshots < 0 {
		return fmt.Errorf("feed.max_snapshots must not be negative")
	}
	if _, err := c.Feed.ParseHandshakeTimeout(); err != nil {
		return fmt.Errorf("feed.handshake_timeout: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Screen:   screen.DefaultOptions(),
		Spread:   spread.DefaultOptions(),
		Strategy: sim.DefaultOptions(),
		Store: StoreConfig{
			DBPath: "./prices.db",
		},
		Report: ReportConfig{
			CSVPath:   "./pairs_pnl.csv",
			PairsPath: "./pairs.csv",
			Top:       20,
		},
		Feed: FeedConfig{
			URL:              "wss://fstream.binance.com/stream?streams=!markPrice@arr",
			HandshakeTimeout: "15s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
