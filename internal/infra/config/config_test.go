package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Discord: DiscordConfig{Token: "discord-token", Prefix: "~"},
		Autoplaylist: AutoplaylistConfig{
			Path:       "autoplaylist.txt",
			TargetSize: 5,
		},
		Monitor: MonitorConfig{IntervalMs: 1000},
		Workers: WorkersConfig{MaxConcurrent: 4},
		Resolver: ResolverConfig{
			Burst: 1,
			Providers: []ProviderConfig{
				{Type: "ytdlp"},
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

func TestConfig_Validate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "no providers",
			mutate:  func(c *Config) { c.Resolver.Providers = nil },
			wantErr: true,
			errMsg:  "Providers",
		},
		{
			name:    "provider without type",
			mutate:  func(c *Config) { c.Resolver.Providers = []ProviderConfig{{}} },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "admin addr without token",
			mutate:  func(c *Config) { c.Admin.Addr = ":8080" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name: "admin addr with token",
			mutate: func(c *Config) {
				c.Admin.Addr = ":8080"
				c.Admin.Token = "secret"
			},
			wantErr: false,
		},
		{
			name:    "monitor interval too small",
			mutate:  func(c *Config) { c.Monitor.IntervalMs = 1 },
			wantErr: true,
			errMsg:  "IntervalMs",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers.MaxConcurrent = 0 },
			wantErr: true,
			errMsg:  "MaxConcurrent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := Parse([]byte(`
discord:
  token: abc
resolver:
  providers:
    - type: ytdlp
`))
	require.NoError(t, err)

	assert.Equal(t, "~", cfg.Discord.Prefix)
	assert.Equal(t, 5, cfg.Autoplaylist.TargetSize)
	assert.Equal(t, time.Second, cfg.MonitorInterval())
	assert.Equal(t, 4, cfg.Workers.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, time.Duration(0), cfg.ResolveTimeout())
	assert.Equal(t, 512, cfg.Resolver.Cache.Size)
	assert.Equal(t, `Playing "%s"`, cfg.Messages.NowPlaying)
	assert.Equal(t, `Added "%s" to queue`, cfg.Messages.Added)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("ADMIN_TOKEN", "admin-env")
	t.Setenv("SPOTIFY_CLIENT_ID", "id-env")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret-env")

	cfg, err := Parse([]byte(`
discord:
  token: from-file
admin:
  addr: ":9090"
resolver:
  providers:
    - type: spotify
    - type: ytdlp
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "admin-env", cfg.Admin.Token)
	assert.Equal(t, "id-env", cfg.Resolver.Providers[0].Settings["client_id"])
	assert.Equal(t, "secret-env", cfg.Resolver.Providers[0].Settings["client_secret"])
	assert.Nil(t, cfg.Resolver.Providers[1].Settings)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("discord: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_File(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
discord:
  token: abc
  prefix: "!"
filters:
  queue_limit_filter:
    enabled: true
    settings:
      max_entries: 3
resolver:
  providers:
    - type: ytdlp
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Discord.Prefix)
	assert.True(t, cfg.IsFilterEnabled("queue_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("duplicate_url_filter"))
	assert.Equal(t, 3, cfg.FilterSettings("queue_limit_filter")["max_entries"])
}

func TestConfig_GetMessage(t *testing.T) {
	cfg := &Config{Messages: MessagesConfig{
		InvalidURL:   "bad url",
		QueueFull:    "full",
		DefaultError: "oops",
	}}

	assert.Equal(t, "bad url", cfg.GetMessage("invalid_url"))
	assert.Equal(t, "full", cfg.GetMessage("queue_full"))
	assert.Equal(t, "oops", cfg.GetMessage("unknown"))
}
