package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Localized URL with query params",
			input:    "https://open.spotify.com/intl-ja/track/abc123?si=xyz",
			expected: "abc123",
		},
		{
			name:     "Trailing slash",
			input:    "https://open.spotify.com/track/abc123/",
			expected: "abc123",
		},
		{
			name:     "Not a track",
			input:    "https://open.spotify.com/playlist/abc123",
			expected: "",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractTrackID(tt.input)
			assert.Equal(t, tt.expected, result,
				"extractTrackID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestClient_Supports(t *testing.T) {
	c := NewWithClient(nil, "")

	assert.True(t, c.Supports("spotify:track:abc"))
	assert.True(t, c.Supports("https://open.spotify.com/track/abc"))
	assert.False(t, c.Supports("https://open.spotify.com/album/abc"))
	assert.False(t, c.Supports("https://www.youtube.com/watch?v=abc"))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "not found error",
			err:      errors.New("404 not found"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := spotify.New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"))
	c := NewWithClient(api, "")
	c.retryDelay = 0
	return c
}

func TestClient_Title(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tracks/abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123","name":"Song","artists":[{"name":"Band"},{"name":"Guest"}]}`))
	})

	title, err := c.Title(context.Background(), "https://open.spotify.com/track/abc123")
	require.NoError(t, err)
	assert.Equal(t, "Band, Guest - Song", title)

	source, err := c.StreamSource(context.Background(), "spotify:track:abc123")
	require.NoError(t, err)
	assert.Equal(t, "ytsearch1:Band, Guest - Song audio", source)
}

func TestClient_TitleNotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"non existing id"}}`))
	})

	_, err := c.Title(context.Background(), "spotify:track:missing")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "404 is not retried")
}

func TestClient_TitleRejectsNonTrack(t *testing.T) {
	c := NewWithClient(nil, "")
	_, err := c.Title(context.Background(), "https://open.spotify.com/album/abc")
	assert.Error(t, err)
}
