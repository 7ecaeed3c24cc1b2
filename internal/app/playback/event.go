package playback

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/autodj/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted EventType = iota // Track started playing
	EventTrackFailed                   // Track could not be started
	EventTrackSkipped                  // Track was skipped
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackFailed:
		return "track_failed"
	case EventTrackSkipped:
		return "track_skipped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	GuildID snowflake.ID
	Entry   track.Entry
	Err     error // set for EventTrackFailed
}
