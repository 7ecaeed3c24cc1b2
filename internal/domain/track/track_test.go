package track

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func TestEntry_ReportChannel(t *testing.T) {
	channel := snowflake.ID(42)

	tests := []struct {
		name     string
		entry    Entry
		wantID   snowflake.ID
		wantOK   bool
		wantUser bool
	}{
		{
			name:     "user entry with channel",
			entry:    NewUserEntry("Song", "http://a", &channel),
			wantID:   42,
			wantOK:   true,
			wantUser: true,
		},
		{
			name:     "user entry without channel",
			entry:    NewUserEntry("Song", "http://a", nil),
			wantOK:   false,
			wantUser: true,
		},
		{
			name:     "autoplaylist entry",
			entry:    NewAutoEntry("Song", "http://a"),
			wantOK:   false,
			wantUser: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.entry.ReportChannel()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantUser, tt.entry.IsUser())
		})
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		name     string
		entries  []Entry
		expected []string
	}{
		{
			name:     "empty",
			entries:  []Entry{},
			expected: []string{},
		},
		{
			name: "keeps order",
			entries: []Entry{
				NewUserEntry("B", "http://b", nil),
				NewAutoEntry("A", "http://a"),
			},
			expected: []string{"B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Titles(tt.entries))
		})
	}
}

func TestEntry_StreamSource(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"url when no source", NewAutoEntry("A", "https://youtu.be/a"), "https://youtu.be/a"},
		{"mapped source", Entry{Title: "B", URL: "https://open.spotify.com/track/b", Source: "ytsearch1:B"}, "ytsearch1:B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.StreamSource())
		})
	}
}
