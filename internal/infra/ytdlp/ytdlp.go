// Package ytdlp wraps the yt-dlp binary for title lookup and audio streaming.
package ytdlp

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
)

// Config represents yt-dlp settings.
type Config struct {
	Proxy  string `mapstructure:"proxy"`
	Format string `mapstructure:"format" default:"bestaudio/best"`
}

// Client runs yt-dlp.
type Client struct {
	cfg Config
}

// New creates a yt-dlp client.
func New(cfg Config) *Client {
	if cfg.Format == "" {
		cfg.Format = "bestaudio/best"
	}
	return &Client{cfg: cfg}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "ytdlp"
}

// Supports reports whether yt-dlp should be tried for url.
func (c *Client) Supports(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (c *Client) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig()
	if c.cfg.Proxy != "" {
		cmd.Proxy(c.cfg.Proxy)
	}
	return cmd
}

// Title prints the title of a single video. Empty output is a failure.
func (c *Client) Title(ctx context.Context, url string) (string, error) {
	res, err := c.command().
		Print("%(title)s").
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return "", errors.Wrapf(err, "yt-dlp failed: %s", firstLine(res.Stderr))
		}
		return "", errors.Wrap(err, "yt-dlp failed")
	}

	title := firstLine(res.Stdout)
	if title == "" {
		return "", errors.Newf("yt-dlp returned no title for %s", url)
	}
	return title, nil
}

// StreamCommand builds a command writing the best audio of source to stdout.
// source may be a URL or a search expression such as "ytsearch1:query".
func (c *Client) StreamCommand(ctx context.Context, source string) *exec.Cmd {
	cmd := c.command().
		Format(c.cfg.Format).
		Output("-").
		Quiet().
		NoPart().
		NoPlaylist().
		NoCheckFormats().
		BuildCommand(ctx, source)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	return cmd
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
