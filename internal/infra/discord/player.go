package discord

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/app/playback"
)

// StreamCommander builds the command that writes a source's audio to stdout.
type StreamCommander interface {
	StreamCommand(ctx context.Context, source string) *exec.Cmd
}

// Player streams tracks into disgo voice connections through yt-dlp and
// ffmpeg. It implements playback.Player. Sources are opened as given; any
// lookup needed to find them happens before Start.
type Player struct {
	ytdlp  StreamCommander
	ffmpeg string

	mu     sync.Mutex
	active map[snowflake.ID]*stream
}

// NewPlayer creates a player. ffmpegPath defaults to "ffmpeg" on PATH.
func NewPlayer(ytdlp StreamCommander, ffmpegPath string) *Player {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Player{
		ytdlp:  ytdlp,
		ffmpeg: ffmpegPath,
		active: make(map[snowflake.ID]*stream),
	}
}

// stream is one running yt-dlp | ffmpeg pipeline.
type stream struct {
	guildID  snowflake.ID
	conn     voice.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	finished atomic.Bool
}

// Finished implements playback.Handle.
func (s *stream) Finished() bool {
	return s.finished.Load()
}

// Start implements playback.Player.
func (p *Player) Start(ctx context.Context, conn playback.Connection, source string) (playback.Handle, error) {
	vc, ok := conn.(voice.Conn)
	if !ok || vc.ChannelID() == nil {
		return nil, playback.ErrConnectionUnavailable
	}
	if source == "" {
		return nil, errors.Mark(errors.New("empty stream source"), playback.ErrPlaybackStartFailed)
	}

	p.Stop(vc.GuildID())

	// The pipeline lives until the track ends or Stop, not until ctx ends.
	streamCtx, cancel := context.WithCancel(context.Background())
	download := p.ytdlp.StreamCommand(streamCtx, source)
	encode := exec.CommandContext(streamCtx, p.ffmpeg, ffmpegArgs("pipe:0")...)

	audio, err := download.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errors.Mark(errors.Wrap(err, "yt-dlp stdout"), playback.ErrPlaybackStartFailed)
	}
	encode.Stdin = audio
	frames, err := encode.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errors.Mark(errors.Wrap(err, "ffmpeg stdout"), playback.ErrPlaybackStartFailed)
	}
	stderr, err := encode.StderrPipe()
	if err != nil {
		cancel()
		return nil, errors.Mark(errors.Wrap(err, "ffmpeg stderr"), playback.ErrPlaybackStartFailed)
	}

	if err := download.Start(); err != nil {
		cancel()
		return nil, errors.Mark(errors.Wrap(err, "start yt-dlp"), playback.ErrPlaybackStartFailed)
	}
	if err := encode.Start(); err != nil {
		cancel()
		_ = download.Wait()
		return nil, errors.Mark(errors.Wrap(err, "start ffmpeg"), playback.ErrPlaybackStartFailed)
	}

	s := &stream{
		guildID: vc.GuildID(),
		conn:    vc,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	var closeDone sync.Once
	provider := newOggOpusProvider(frames, func() {
		closeDone.Do(func() { close(s.done) })
	})

	p.mu.Lock()
	p.active[s.guildID] = s
	p.mu.Unlock()

	go logStderr(s.guildID, stderr)
	go p.wait(streamCtx, s, download, encode)

	vc.SetOpusFrameProvider(provider)
	if err := vc.SetSpeaking(ctx, voice.SpeakingFlagMicrophone); err != nil {
		zlog.Debug().Msgf("failed to set speaking: guild=%s error=%v", s.guildID, err)
	}

	zlog.Debug().Msgf("stream started: guild=%s source=%s", s.guildID, source)
	return s, nil
}

// wait tears the pipeline down once the audio ends or the stream is stopped.
func (p *Player) wait(ctx context.Context, s *stream, download, encode *exec.Cmd) {
	select {
	case <-s.done:
	case <-ctx.Done():
	}

	s.cancel()
	_ = encode.Wait()
	_ = download.Wait()
	s.finished.Store(true)

	p.mu.Lock()
	current := p.active[s.guildID] == s
	if current {
		delete(p.active, s.guildID)
	}
	p.mu.Unlock()

	// A newer stream owns the connection otherwise.
	if current {
		s.conn.SetOpusFrameProvider(nil)
		_ = s.conn.SetSpeaking(context.Background(), 0)
	}
	zlog.Debug().Msgf("stream finished: guild=%s", s.guildID)
}

// Stop implements playback.Player.
func (p *Player) Stop(guildID snowflake.ID) {
	p.mu.Lock()
	s, ok := p.active[guildID]
	if ok {
		delete(p.active, guildID)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	s.finished.Store(true)
	s.cancel()
	s.conn.SetOpusFrameProvider(nil)
	_ = s.conn.SetSpeaking(context.Background(), 0)
}

// StopAll ends every active stream.
func (p *Player) StopAll() {
	p.mu.Lock()
	guilds := make([]snowflake.ID, 0, len(p.active))
	for id := range p.active {
		guilds = append(guilds, id)
	}
	p.mu.Unlock()

	for _, id := range guilds {
		p.Stop(id)
	}
}

// ffmpegArgs encodes input to Ogg/Opus on stdout.
func ffmpegArgs(input string) []string {
	args := []string{
		"-i", input,
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-compression_level", "10",
		"-analyzeduration", "0",
		"-probesize", "32",
		"-f", "opus",
		"-loglevel", "warning",
		"pipe:1",
	}
	if strings.HasPrefix(input, "http") {
		args = append([]string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "2",
		}, args...)
	}
	return args
}

func logStderr(guildID snowflake.ID, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		zlog.Debug().Msgf("ffmpeg: guild=%s %s", guildID, scanner.Text())
	}
}
