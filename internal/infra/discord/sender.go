package discord

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// MessageCreator is the part of rest.Rest used to post messages.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Sender posts plain text messages. It implements notification.Sender.
type Sender struct {
	rest MessageCreator
}

// NewSender creates a sender.
func NewSender(r MessageCreator) *Sender {
	return &Sender{rest: r}
}

// Send posts content to channelID.
func (s *Sender) Send(ctx context.Context, channelID snowflake.ID, content string) error {
	if _, err := s.rest.CreateMessage(channelID, discord.MessageCreate{Content: content}, rest.WithCtx(ctx)); err != nil {
		return errors.Wrapf(err, "failed to send message to %s", channelID)
	}
	return nil
}
