// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Discord      DiscordConfig           `yaml:"discord"`
	Autoplaylist AutoplaylistConfig      `yaml:"autoplaylist"`
	Monitor      MonitorConfig           `yaml:"monitor"`
	Workers      WorkersConfig           `yaml:"workers"`
	Resolver     ResolverConfig          `yaml:"resolver"`
	Admin        AdminConfig             `yaml:"admin"`
	Filters      map[string]FilterConfig `yaml:"filters"`
	Messages     MessagesConfig          `yaml:"messages"`
	Log          LogConfig               `yaml:"log"`
}

// DiscordConfig represents the bot account and command settings.
type DiscordConfig struct {
	Token  string `yaml:"token" validate:"required"`
	Prefix string `yaml:"prefix" default:"~" validate:"required"`
}

// AutoplaylistConfig represents the fallback playlist settings.
type AutoplaylistConfig struct {
	Path       string `yaml:"path"`
	TargetSize int    `yaml:"target_size" default:"5" validate:"gte=1,lte=100"`
}

// MonitorConfig represents the session monitor settings.
type MonitorConfig struct {
	IntervalMs int `yaml:"interval_ms" default:"1000" validate:"gte=50,lte=60000"`
}

// WorkersConfig represents the background resolution pool.
type WorkersConfig struct {
	MaxConcurrent     int `yaml:"max_concurrent" default:"4" validate:"gte=1,lte=64"`
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms" default:"5000" validate:"gte=0"`
}

// ResolverConfig represents title resolution settings.
type ResolverConfig struct {
	RatePerSec float64          `yaml:"rate_per_sec" default:"2" validate:"gte=0"`
	Burst      int              `yaml:"burst" default:"4" validate:"gte=1"`
	TimeoutSec int              `yaml:"timeout_sec" validate:"gte=0"`
	Cache      CacheConfig      `yaml:"cache"`
	Providers  []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// CacheConfig represents the title cache.
type CacheConfig struct {
	Size int    `yaml:"size" default:"512" validate:"gte=0"`
	Path string `yaml:"path"` // sqlite file, empty disables persistence
}

// ProviderConfig represents a single resolver provider configuration.
type ProviderConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// AdminConfig represents the RPC admin endpoint.
type AdminConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token" validate:"required_with=Addr"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Added          string `yaml:"added" default:"Added \"%s\" to queue"`
	PushFailed     string `yaml:"push_failed" default:"Couldn't play url"`
	NowPlaying     string `yaml:"now_playing" default:"Playing \"%s\""`
	PlaybackFailed string `yaml:"playback_failed" default:"Couldn't play \"%s\""`
	NotInVoice     string `yaml:"not_in_voice" default:"Not in a voice channel"`
	NothingPlaying string `yaml:"nothing_playing" default:"Nothing is playing"`
	InvalidURL     string `yaml:"invalid_url" default:"That doesn't look like a url"`
	DuplicateURL   string `yaml:"duplicate_url" default:"That url is already queued"`
	QueueFull      string `yaml:"queue_full" default:"The queue is full"`
	DefaultError   string `yaml:"default_error" default:"Something went wrong"`
}

// LogConfig represents logging settings that are not set by flags.
type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
	MaxBackups int    `yaml:"max_backups" default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" default:"14"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	for i := range c.Resolver.Providers {
		p := &c.Resolver.Providers[i]
		if p.Type != "spotify" {
			continue
		}
		if p.Settings == nil {
			p.Settings = map[string]any{}
		}
		if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
			p.Settings["client_id"] = v
		}
		if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
			p.Settings["client_secret"] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "invalid_url":
		return c.Messages.InvalidURL
	case "duplicate_url":
		return c.Messages.DuplicateURL
	case "queue_full":
		return c.Messages.QueueFull
	case "push_failed":
		return c.Messages.PushFailed
	default:
		return c.Messages.DefaultError
	}
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// MonitorInterval returns the monitor tick interval.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMs) * time.Millisecond
}

// ShutdownTimeout returns how long the worker pool is drained on exit.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Workers.ShutdownTimeoutMs) * time.Millisecond
}

// ResolveTimeout returns the per-resolution timeout, zero meaning none.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutSec) * time.Second
}
