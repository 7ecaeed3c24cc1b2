// Package session provides the session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/autodj/internal/app/filter"
	"github.com/osa030/autodj/internal/app/notification"
	"github.com/osa030/autodj/internal/app/playback"
	"github.com/osa030/autodj/internal/app/playlist"
	"github.com/osa030/autodj/internal/app/resolver"
	"github.com/osa030/autodj/internal/app/session/registry"
	"github.com/osa030/autodj/internal/app/session/state"
	"github.com/osa030/autodj/internal/app/worker"
	"github.com/osa030/autodj/internal/domain/track"
	"github.com/osa030/autodj/internal/infra/config"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrMonitorRunning    = errors.New("session monitor already running")
	ErrMissingDependency = errors.New("missing session dependency")
)

// Options carries the collaborators of a Manager. Resolver, Player and
// Connections are required; the rest are built from config when nil.
type Options struct {
	Resolver     resolver.Resolver
	Player       playback.Player
	Connections  playback.Connections
	Notification *notification.Manager
	Pool         *worker.Pool
	Filters      *filter.Chain
}

// Manager owns every guild session and the monitor that keeps them playing.
type Manager struct {
	// Configuration
	config *config.Config

	// Components
	sessions     *registry.SessionRegistry
	resolver     resolver.Resolver
	player       playback.Player
	connections  playback.Connections
	notification *notification.Manager
	pool         *worker.Pool
	filterChain  *filter.Chain

	// Session creation
	creating singleflight.Group

	// Lifetime of background priming and refills
	ctx    context.Context
	cancel context.CancelFunc

	// Monitor loop
	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	done       chan struct{}
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, opts Options) (*Manager, error) {
	if opts.Resolver == nil || opts.Player == nil || opts.Connections == nil {
		return nil, errors.Wrap(ErrMissingDependency, "resolver, player and connections are required")
	}

	if opts.Filters == nil {
		chain, err := filter.NewChainFromConfig(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create filter chain")
		}
		opts.Filters = chain
	}
	if opts.Pool == nil {
		opts.Pool = worker.NewPool(cfg.Workers.MaxConcurrent)
	}
	if opts.Notification == nil {
		opts.Notification = notification.NewManager(nil, cfg.Messages)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:       cfg,
		sessions:     registry.NewSessionRegistry(),
		resolver:     opts.Resolver,
		player:       opts.Player,
		connections:  opts.Connections,
		notification: opts.Notification,
		pool:         opts.Pool,
		filterChain:  opts.Filters,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Session returns the guild's session.
func (m *Manager) Session(guildID snowflake.ID) (*state.Session, error) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetOrCreate returns the guild's session, creating and priming it on first
// use. Concurrent first calls for the same guild share one creation.
func (m *Manager) GetOrCreate(ctx context.Context, guildID snowflake.ID) (*state.Session, error) {
	if s, ok := m.sessions.Get(guildID); ok {
		return s, nil
	}

	ch := m.creating.DoChan(guildID.String(), func() (any, error) {
		if s, ok := m.sessions.Get(guildID); ok {
			return s, nil
		}

		// Priming outlives the request that triggered it.
		pl := playlist.New(m.ctx, playlist.Config{
			Path:        m.config.Autoplaylist.Path,
			TargetSize:  m.config.Autoplaylist.TargetSize,
			Concurrency: m.config.Workers.MaxConcurrent,
		}, m.resolver, m.pool)

		s := m.sessions.Add(state.New(guildID, pl))
		zlog.Info().Msgf("session created: guild=%s session_id=%s autoplaylist=%d", guildID, s.ID, pl.Stats().Store)
		return s, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*state.Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PushResult is the outcome of a play request.
type PushResult struct {
	Accepted bool
	Code     string // filter or failure code when not accepted
	Title    string
}

// Push runs the request filters and queues url for the guild.
// A rejected request is not an error; a failed resolution is.
func (m *Manager) Push(ctx context.Context, guildID, requesterID snowflake.ID, channelID *snowflake.ID, url string) (PushResult, error) {
	s, err := m.GetOrCreate(ctx, guildID)
	if err != nil {
		return PushResult{Code: "push_failed"}, err
	}

	req := filter.TrackRequest{
		GuildID:     guildID,
		RequesterID: requesterID,
		URL:         url,
		Queued:      s.Playlist.Pending(),
	}
	result := m.filterChain.Execute(ctx, req)
	if !result.Accepted {
		zlog.Info().Msgf("track request rejected: guild=%s requester=%s url=%s code=%s", guildID, requesterID, url, result.Code)
		return PushResult{Code: result.Code}, nil
	}

	title, err := s.Playlist.Push(ctx, url, channelID)
	if err != nil {
		zlog.Warn().Msgf("track request failed: guild=%s url=%s error=%v", guildID, url, err)
		return PushResult{Code: "push_failed"}, err
	}

	zlog.Info().Msgf("track request: guild=%s requester=%s title=%s", guildID, requesterID, title)
	return PushResult{Accepted: true, Title: title}, nil
}

// Skip stops the guild's current track. Skipping with nothing playing, or
// in a guild without a session, does nothing.
func (m *Manager) Skip(ctx context.Context, guildID snowflake.ID) (track.Entry, bool) {
	s, ok := m.sessions.Get(guildID)
	if !ok {
		return track.Entry{}, false
	}

	// Waits for an advance in progress, so a track being started is the
	// one skipped.
	s.LockTurn()
	defer s.UnlockTurn()

	cur, ok := s.ClearCurrent()
	if !ok {
		return track.Entry{}, false
	}
	m.player.Stop(guildID)

	zlog.Info().Msgf("track skipped: guild=%s title=%s", guildID, cur.Entry.Title)
	m.notification.Publish(ctx, playback.Event{
		Type:    playback.EventTrackSkipped,
		GuildID: guildID,
		Entry:   cur.Entry,
	})
	return cur.Entry, true
}

// Status represents a session snapshot.
type Status struct {
	SessionID  string         `json:"session_id"`
	GuildID    string         `json:"guild_id"`
	State      string         `json:"state"`
	NowPlaying *track.Entry   `json:"now_playing,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	Queue      []string       `json:"queue"`
	Stats      playlist.Stats `json:"stats"`
}

func statusOf(s *state.Session) Status {
	st := Status{
		SessionID: s.ID,
		GuildID:   s.GuildID.String(),
		State:     s.State().String(),
		Queue:     s.Playlist.Queue(),
		Stats:     s.Playlist.Stats(),
	}
	if cur, ok := s.Current(); ok && playback.StateOf(cur.Handle) == playback.StatePlaying {
		st.NowPlaying = &cur.Entry
		st.StartedAt = &cur.StartedAt
	}
	return st
}

// Status returns the guild's session snapshot.
func (m *Manager) Status(guildID snowflake.ID) (Status, error) {
	s, err := m.Session(guildID)
	if err != nil {
		return Status{}, err
	}
	return statusOf(s), nil
}

// List returns a snapshot of every session ordered by guild.
func (m *Manager) List() []Status {
	sessions := m.sessions.All()
	result := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, statusOf(s))
	}
	return result
}

// Workers returns the background pool counters.
func (m *Manager) Workers() (running, pending int) {
	return m.pool.Running(), m.pool.Pending()
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Start launches the monitor loop. It returns ErrMonitorRunning if the loop
// is already running.
func (m *Manager) Start(ctx context.Context) error {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	if m.done != nil {
		select {
		case <-m.done:
		default:
			return ErrMonitorRunning
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.loopCancel = cancel
	m.done = make(chan struct{})

	zlog.Info().Msgf("session monitor started: interval=%s", m.config.MonitorInterval())
	go m.monitorLoop(loopCtx, m.done)
	return nil
}

// Stop signals the monitor loop and blocks until it has exited.
// Background refills keep running; Close shuts them down.
func (m *Manager) Stop() {
	m.loopMu.Lock()
	cancel, done := m.loopCancel, m.done
	m.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done returns a channel that is closed when the monitor loop exits.
// It is nil before Start.
func (m *Manager) Done() <-chan struct{} {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	return m.done
}

// monitorLoop advances idle sessions once per interval.
func (m *Manager) monitorLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer zlog.Info().Msg("session monitor stopped")

	ticker := time.NewTicker(m.config.MonitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick advances every session once.
func (m *Manager) tick(ctx context.Context) {
	for _, s := range m.sessions.All() {
		if ctx.Err() != nil {
			return
		}
		m.advance(ctx, s)
	}
}

// advance starts the next entry when the session is idle and connected.
// Errors are reported and never stop the loop.
func (m *Manager) advance(ctx context.Context, s *state.Session) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session advance panicked: guild=%s error=%v", s.GuildID, r)
		}
	}()

	s.LockTurn()
	defer s.UnlockTurn()

	if s.IsPlaying() {
		return
	}
	if cur, ok := s.ClearCurrent(); ok {
		zlog.Debug().Msgf("track finished: guild=%s title=%s", s.GuildID, cur.Entry.Title)
	}

	conn, ok := m.connections.Get(s.GuildID)
	if !ok {
		return
	}

	entry, ok := s.Playlist.Poll(ctx)
	if !ok {
		return
	}

	handle, err := m.player.Start(ctx, conn, entry.StreamSource())
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "start %s", entry.URL), playback.ErrPlaybackStartFailed)
		zlog.Warn().Msgf("playback failed: guild=%s title=%s error=%v", s.GuildID, entry.Title, err)
		m.notification.Publish(ctx, playback.Event{
			Type:    playback.EventTrackFailed,
			GuildID: s.GuildID,
			Entry:   entry,
			Err:     err,
		})
		return
	}

	s.SetCurrent(entry, handle)
	zlog.Info().Msgf("track started: guild=%s title=%s requester=%s", s.GuildID, entry.Title, entry.Type)
	m.notification.Publish(ctx, playback.Event{
		Type:    playback.EventTrackStarted,
		GuildID: s.GuildID,
		Entry:   entry,
	})
}

// Close stops the monitor and drains background work.
func (m *Manager) Close() {
	m.Stop()
	m.cancel()
	if !m.pool.Close(m.config.ShutdownTimeout()) {
		zlog.Warn().Msg("background resolutions still running at shutdown")
	}
	m.notification.Close()
}
