// Package playback defines the audio collaborators driven by the session monitor.
package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
)

// Errors
var (
	ErrPlaybackStartFailed   = errors.New("failed to start playback")
	ErrConnectionUnavailable = errors.New("voice connection unavailable")
)

// Connection is an established voice connection for one guild.
type Connection interface {
	GuildID() snowflake.ID
}

// Connections looks up voice connections.
type Connections interface {
	// Get returns the guild's connection, or false when the bot is not in voice.
	Get(guildID snowflake.ID) (Connection, bool)
}

// Handle tracks one started stream.
type Handle interface {
	// Finished reports whether the stream ended or was stopped.
	Finished() bool
}

// Player streams audio into voice connections.
type Player interface {
	// Start begins streaming source on conn and returns without waiting for
	// it to end. source is a URL or a search expression the player can open
	// without further lookups. Any stream already running on the guild is
	// replaced.
	Start(ctx context.Context, conn Connection, source string) (Handle, error)

	// Stop ends the guild's active stream, if any.
	Stop(guildID snowflake.ID)
}
