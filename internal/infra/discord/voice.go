package discord

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/app/playback"
)

// Voice manages the bot's voice connections. It implements
// playback.Connections.
type Voice struct {
	client *bot.Client
}

// NewVoice creates a voice manager on client.
func NewVoice(client *bot.Client) *Voice {
	return &Voice{client: client}
}

// Get returns the guild's connection while it is joined to a channel.
func (v *Voice) Get(guildID snowflake.ID) (playback.Connection, bool) {
	conn := v.client.VoiceManager.GetConn(guildID)
	if conn == nil || conn.ChannelID() == nil {
		return nil, false
	}
	return conn, true
}

// Join connects to channelID, moving away from any other channel in the guild.
func (v *Voice) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	if conn := v.client.VoiceManager.GetConn(guildID); conn != nil {
		if current := conn.ChannelID(); current != nil && *current == channelID {
			return nil
		}
		conn.Close(ctx)
	}

	conn := v.client.VoiceManager.CreateConn(guildID)
	if err := conn.Open(ctx, channelID, false, true); err != nil {
		conn.Close(ctx)
		return errors.Wrapf(err, "failed to join voice channel %s", channelID)
	}
	zlog.Info().Msgf("joined voice: guild=%s channel=%s", guildID, channelID)
	return nil
}

// Leave disconnects from the guild's voice channel.
func (v *Voice) Leave(ctx context.Context, guildID snowflake.ID) error {
	conn := v.client.VoiceManager.GetConn(guildID)
	if conn == nil {
		return playback.ErrConnectionUnavailable
	}
	conn.Close(ctx)
	zlog.Info().Msgf("left voice: guild=%s", guildID)
	return nil
}

// UserChannel returns the voice channel userID is in.
func (v *Voice) UserChannel(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	state, ok := v.client.Caches.VoiceState(guildID, userID)
	if !ok || state.ChannelID == nil {
		return 0, false
	}
	return *state.ChannelID, true
}
