// Package config loads the optional YAML configuration file. Values from the file
// are the base, command line and environment options override them in main.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// feed sources
const (
	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen   string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server read and write timeout"`
		Throttle int64         `yaml:"throttle" json:"throttle" jsonschema:"default=100,description=Maximum concurrent requests"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database DatabaseConfig `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Feed FeedConfig `yaml:"feed" json:"feed" jsonschema:"description=News feed provider configuration"`

	Schedule struct {
		Fetch      time.Duration `yaml:"fetch" json:"fetch" jsonschema:"default=60s,description=News ingestion interval"`
		Purge      time.Duration `yaml:"purge" json:"purge" jsonschema:"default=24h,description=Interval of today's news purge, 0 disables it"`
		RunOnStart bool          `yaml:"run_on_start" json:"run_on_start" jsonschema:"default=true,description=Run ingestion right after start"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Broker struct {
		URL string `yaml:"url" json:"url" jsonschema:"description=Redis url for the task run lock (optional)"`
	} `yaml:"broker" json:"broker" jsonschema:"description=Task broker configuration"`
}

// DatabaseConfig holds connection pool settings
type DatabaseConfig struct {
	URL             string        `yaml:"url" json:"url" jsonschema:"description=Database url, mysql:// postgres:// or sqlite://"`
	CAPath          string        `yaml:"ca_path" json:"ca_path" jsonschema:"default=isrgrootx1.pem,description=CA bundle for the encrypted connection"`
	MinConns        int           `yaml:"min_conns" json:"min_conns" jsonschema:"default=1,minimum=1,description=Connections opened on start"`
	MaxConns        int           `yaml:"max_conns" json:"max_conns" jsonschema:"default=10,minimum=1,description=Maximum open connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=1h,description=Connection maximum lifetime"`
	ConnectRetries  int           `yaml:"connect_retries" json:"connect_retries" jsonschema:"default=3,minimum=1,description=Ping attempts on start"`
}

// FeedConfig holds news provider settings
type FeedConfig struct {
	Source    string        `yaml:"source" json:"source" jsonschema:"default=newsapi,enum=newsapi,enum=rss,description=Feed provider type"`
	URL       string        `yaml:"url" json:"url" jsonschema:"description=Provider endpoint, required for rss"`
	APIKey    string        `yaml:"api_key" json:"api_key" jsonschema:"description=NewsAPI key (can use environment variable)"`
	Country   string        `yaml:"country" json:"country" jsonschema:"default=us,description=NewsAPI country"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=newspulse/1.0,description=User agent for provider requests"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Provider request timeout"`
}

// Load reads configuration from a YAML file, fills defaults and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := base()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

// Default returns configuration with all defaults set
func Default() *Config {
	cfg := base()
	cfg.SetDefaults()
	return &cfg
}

// base has the defaults where zero is a valid value, so they can't be filled after parsing
func base() Config {
	cfg := Config{}
	cfg.Schedule.Purge = 24 * time.Hour
	cfg.Schedule.RunOnStart = true
	return cfg
}

// SetDefaults fills empty values. Purge interval is left alone, zero disables the purge.
func (c *Config) SetDefaults() {
	// server
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.Throttle == 0 {
		c.Server.Throttle = 100
	}

	// database
	if c.Database.CAPath == "" {
		c.Database.CAPath = "isrgrootx1.pem"
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 1
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.ConnectRetries == 0 {
		c.Database.ConnectRetries = 3
	}

	// feed
	if c.Feed.Source == "" {
		c.Feed.Source = SourceNewsAPI
	}
	if c.Feed.Country == "" {
		c.Feed.Country = "us"
	}
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = "newspulse/1.0"
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 10 * time.Second
	}

	// schedule
	if c.Schedule.Fetch == 0 {
		c.Schedule.Fetch = 60 * time.Second
	}
}

// Validate checks configuration for correctness
func (c *Config) Validate() error {
	// validate server config
	if c.Server.Timeout < time.Second {
		return errors.New("server timeout must be at least 1 second")
	}
	if c.Server.Throttle < 1 {
		return errors.New("server.throttle must be at least 1")
	}

	// validate database config, the url itself is checked by the pool on first use
	if c.Database.MinConns < 1 {
		return errors.New("database.min_conns must be at least 1")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns %d is below min_conns %d", c.Database.MaxConns, c.Database.MinConns)
	}
	if c.Database.ConnectRetries < 1 {
		return errors.New("database.connect_retries must be at least 1")
	}

	// validate feed config
	switch c.Feed.Source {
	case SourceNewsAPI:
	case SourceRSS:
		if c.Feed.URL == "" {
			return errors.New("feed.url is required for rss source")
		}
	default:
		return fmt.Errorf("unknown feed.source %q, expected newsapi or rss", c.Feed.Source)
	}
	if c.Feed.Timeout < time.Second {
		return errors.New("feed timeout must be at least 1 second")
	}

	// validate schedule
	if c.Schedule.Fetch < time.Second {
		return errors.New("schedule.fetch must be at least 1 second")
	}
	if c.Schedule.Purge < 0 {
		return errors.New("schedule.purge can't be negative")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
