package ytdlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"single", "Song Title\n", "Song Title"},
		{"multiple", "  First \nSecond\n", "First"},
		{"whitespace only", "\n\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstLine(tt.input))
		})
	}
}

func TestClient_Supports(t *testing.T) {
	c := New(Config{})

	assert.True(t, c.Supports("https://www.youtube.com/watch?v=abc"))
	assert.True(t, c.Supports("http://example.com/a.mp3"))
	assert.False(t, c.Supports("ytsearch1:foo"))
	assert.False(t, c.Supports("spotify:track:abc"))
}

func TestClient_StreamCommand(t *testing.T) {
	c := New(Config{Proxy: "socks5://127.0.0.1:1080"})

	cmd := c.StreamCommand(context.Background(), "ytsearch1:foo")

	assert.Contains(t, cmd.Args, "ytsearch1:foo")
	assert.Contains(t, cmd.Env, "PYTHONUNBUFFERED=1")
}
