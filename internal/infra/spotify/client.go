// Package spotify resolves Spotify track links to playable titles.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Client is a Spotify API client authenticated with client credentials.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	Market       string `mapstructure:"market" validate:"omitempty,len=2"`
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	return NewWithClient(spotify.New(auth.Client(ctx)), cfg.Market), nil
}

// NewWithClient wraps an existing API client.
func NewWithClient(client *spotify.Client, market string) *Client {
	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "spotify"
}

// Supports reports whether input is a Spotify track link.
func (c *Client) Supports(input string) bool {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return true
	}
	return strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/")
}

// Title returns "Artist - Name" for a track URL or URI.
func (c *Client) Title(ctx context.Context, input string) (string, error) {
	id := extractTrackID(input)
	if id == "" {
		return "", errors.Newf("no track id in %q", input)
	}

	var opts []spotify.RequestOption
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), opts...)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get track")
	}

	return formatTitle(result), nil
}

// StreamSource returns a yt-dlp search expression for the track, since
// Spotify audio cannot be streamed directly.
func (c *Client) StreamSource(ctx context.Context, input string) (string, error) {
	title, err := c.Title(ctx, input)
	if err != nil {
		return "", err
	}
	return "ytsearch1:" + title + " audio", nil
}

func formatTitle(t *spotify.FullTrack) string {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	if len(artists) == 0 {
		return t.Name
	}
	return strings.Join(artists, ", ") + " - " + t.Name
}

// retry executes fn with retry logic for transient errors.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractTrackID extracts the track ID from a Spotify URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return ""
}
