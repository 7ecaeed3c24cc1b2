package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/app/session"
	"github.com/osa030/autodj/internal/app/session/state"
	"github.com/osa030/autodj/internal/domain/track"
	"github.com/osa030/autodj/internal/infra/config"
)

// queuePreview is how many upcoming titles the queue command lists.
const queuePreview = 5

// Message is a guild text message addressed to the bot.
type Message struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	AuthorID  snowflake.ID
	Content   string
}

// Sessions is the session manager as seen by commands.
type Sessions interface {
	GetOrCreate(ctx context.Context, guildID snowflake.ID) (*state.Session, error)
	Push(ctx context.Context, guildID, requesterID snowflake.ID, channelID *snowflake.ID, url string) (session.PushResult, error)
	Status(guildID snowflake.ID) (session.Status, error)
	Skip(ctx context.Context, guildID snowflake.ID) (track.Entry, bool)
}

// VoiceChannels joins and leaves voice channels.
type VoiceChannels interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) error
	Leave(ctx context.Context, guildID snowflake.ID) error
	UserChannel(guildID, userID snowflake.ID) (snowflake.ID, bool)
}

// Replier answers in a text channel.
type Replier interface {
	Reply(ctx context.Context, channelID snowflake.ID, text string)
}

// Commands routes prefixed chat commands.
type Commands struct {
	cfg      *config.Config
	sessions Sessions
	voice    VoiceChannels
	replier  Replier
	handlers map[string]func(ctx context.Context, msg Message, args []string)
}

// NewCommands creates the command router.
func NewCommands(cfg *config.Config, sessions Sessions, voice VoiceChannels, replier Replier) *Commands {
	c := &Commands{
		cfg:      cfg,
		sessions: sessions,
		voice:    voice,
		replier:  replier,
	}
	c.handlers = map[string]func(context.Context, Message, []string){
		"summon": c.summon,
		"leave":  c.leave,
		"play":   c.play,
		"queue":  c.queue,
		"skip":   c.skip,
	}
	return c
}

// parseCommand splits "<prefix>name args..." into its parts.
func parseCommand(prefix, content string) (string, []string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !ok {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 || rest != strings.TrimLeft(rest, " \t") {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Handle runs the command in msg, if any.
func (c *Commands) Handle(ctx context.Context, msg Message) {
	name, args, ok := parseCommand(c.cfg.Discord.Prefix, msg.Content)
	if !ok {
		return
	}
	handler, ok := c.handlers[name]
	if !ok {
		return
	}
	zlog.Debug().Msgf("command: guild=%s author=%s name=%s args=%v", msg.GuildID, msg.AuthorID, name, args)
	handler(ctx, msg, args)
}

func (c *Commands) reply(ctx context.Context, msg Message, text string) {
	c.replier.Reply(ctx, msg.ChannelID, text)
}

// joinAuthor moves the bot into the author's voice channel.
func (c *Commands) joinAuthor(ctx context.Context, msg Message) bool {
	channelID, ok := c.voice.UserChannel(msg.GuildID, msg.AuthorID)
	if !ok {
		c.reply(ctx, msg, c.cfg.Messages.NotInVoice)
		return false
	}
	if err := c.voice.Join(ctx, msg.GuildID, channelID); err != nil {
		zlog.Warn().Msgf("voice join failed: guild=%s channel=%s error=%v", msg.GuildID, channelID, err)
		c.reply(ctx, msg, c.cfg.Messages.DefaultError)
		return false
	}
	return true
}

func (c *Commands) summon(ctx context.Context, msg Message, _ []string) {
	if !c.joinAuthor(ctx, msg) {
		return
	}
	if _, err := c.sessions.GetOrCreate(ctx, msg.GuildID); err != nil {
		zlog.Error().Msgf("failed to create session: guild=%s error=%v", msg.GuildID, err)
		c.reply(ctx, msg, c.cfg.Messages.DefaultError)
	}
}

func (c *Commands) leave(ctx context.Context, msg Message, _ []string) {
	c.sessions.Skip(ctx, msg.GuildID)
	if err := c.voice.Leave(ctx, msg.GuildID); err != nil {
		zlog.Debug().Msgf("leave: guild=%s error=%v", msg.GuildID, err)
	}
}

func (c *Commands) play(ctx context.Context, msg Message, args []string) {
	if len(args) == 0 {
		c.reply(ctx, msg, c.cfg.Messages.InvalidURL)
		return
	}
	if !c.joinAuthor(ctx, msg) {
		return
	}

	channelID := msg.ChannelID
	result, err := c.sessions.Push(ctx, msg.GuildID, msg.AuthorID, &channelID, args[0])
	switch {
	case err != nil:
		c.reply(ctx, msg, c.cfg.Messages.PushFailed)
	case !result.Accepted:
		c.reply(ctx, msg, c.cfg.GetMessage(result.Code))
	default:
		c.reply(ctx, msg, fmt.Sprintf(c.cfg.Messages.Added, result.Title))
	}
}

func (c *Commands) queue(ctx context.Context, msg Message, _ []string) {
	status, err := c.sessions.Status(msg.GuildID)
	if err != nil || (status.NowPlaying == nil && len(status.Queue) == 0) {
		c.reply(ctx, msg, c.cfg.Messages.NothingPlaying)
		return
	}
	c.reply(ctx, msg, formatQueue(status, queuePreview))
}

func (c *Commands) skip(ctx context.Context, msg Message, _ []string) {
	if _, ok := c.sessions.Skip(ctx, msg.GuildID); !ok {
		c.reply(ctx, msg, c.cfg.Messages.NothingPlaying)
	}
}

// formatQueue renders the current track and the next limit titles.
func formatQueue(status session.Status, limit int) string {
	var b strings.Builder
	if status.NowPlaying != nil {
		fmt.Fprintf(&b, "Now playing: %s\n", status.NowPlaying.Title)
	}
	shown := status.Queue
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for i, title := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	if more := len(status.Queue) - len(shown); more > 0 {
		fmt.Fprintf(&b, "... and %d more\n", more)
	}
	return strings.TrimRight(b.String(), "\n")
}
