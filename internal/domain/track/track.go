// Package track provides the queue entry domain entity.
package track

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// RequesterType represents the origin of a queue entry.
type RequesterType string

const (
	RequesterTypeUser         RequesterType = "USER"
	RequesterTypeAutoplaylist RequesterType = "AUTOPLAYLIST"
)

// Entry represents a resolved track waiting in a queue.
type Entry struct {
	Title   string        `json:"title"`             // Resolved title
	URL     string        `json:"url"`               // Source URL
	Type    RequesterType `json:"type"`              // Who queued it
	Channel *snowflake.ID `json:"channel,omitempty"` // Text channel to report to (user entries only)
	Source  string        `json:"source,omitempty"`  // What the player opens, when it differs from URL
	AddedAt time.Time     `json:"added_at"`          // Time when added to queue
}

// NewUserEntry builds an entry pushed by a user command.
func NewUserEntry(title, url string, channel *snowflake.ID) Entry {
	return Entry{
		Title:   title,
		URL:     url,
		Type:    RequesterTypeUser,
		Channel: channel,
		AddedAt: time.Now(),
	}
}

// NewAutoEntry builds an entry drawn from the autoplaylist.
func NewAutoEntry(title, url string) Entry {
	return Entry{
		Title:   title,
		URL:     url,
		Type:    RequesterTypeAutoplaylist,
		AddedAt: time.Now(),
	}
}

// IsUser reports whether the entry was requested by a user.
func (e Entry) IsUser() bool {
	return e.Type == RequesterTypeUser
}

// StreamSource returns what the player should open for this entry.
func (e Entry) StreamSource() string {
	if e.Source != "" {
		return e.Source
	}
	return e.URL
}

// ReportChannel returns the channel that should hear about this entry.
func (e Entry) ReportChannel() (snowflake.ID, bool) {
	if e.Channel == nil {
		return 0, false
	}
	return *e.Channel, true
}

// Titles extracts the titles of entries in order.
func Titles(entries []Entry) []string {
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Title
	}
	return titles
}
