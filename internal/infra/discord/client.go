// Package discord connects the player to Discord: gateway, voice, messages
// and prefix commands.
package discord

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/infra/config"
)

// Bot bundles the disgo client with the voice manager and message sender.
type Bot struct {
	Client *bot.Client
	Voice  *Voice
	Sender *Sender

	commands atomic.Pointer[Commands]
}

// New creates the bot client. The gateway is not opened until Open.
func New(cfg config.DiscordConfig) (*Bot, error) {
	b := &Bot{}
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
				gateway.IntentGuildVoiceStates,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithEventListenerFunc(b.onReady),
		bot.WithEventListenerFunc(b.onMessageCreate),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord client")
	}

	b.Client = client
	b.Voice = NewVoice(client)
	b.Sender = NewSender(client.Rest)
	return b, nil
}

// SetCommands routes incoming messages to c.
func (b *Bot) SetCommands(c *Commands) {
	b.commands.Store(c)
}

// Open connects to the gateway.
func (b *Bot) Open(ctx context.Context) error {
	if err := b.Client.OpenGateway(ctx); err != nil {
		return errors.Wrap(err, "failed to open gateway")
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close(ctx context.Context) {
	b.Client.Close(ctx)
}

func (b *Bot) onReady(e *events.Ready) {
	zlog.Info().Msgf("discord ready: user=%s guilds=%d", e.User.Username, len(e.Guilds))
}

func (b *Bot) onMessageCreate(e *events.MessageCreate) {
	c := b.commands.Load()
	if c == nil || e.Message.Author.Bot || e.GuildID == nil {
		return
	}
	go c.Handle(context.Background(), Message{
		GuildID:   *e.GuildID,
		ChannelID: e.ChannelID,
		AuthorID:  e.Message.Author.ID,
		Content:   e.Message.Content,
	})
}
