// Package state provides per-guild playback state.
package state

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"

	"github.com/osa030/autodj/internal/app/playback"
	"github.com/osa030/autodj/internal/app/playlist"
	"github.com/osa030/autodj/internal/domain/track"
)

// Current is the track a session is playing.
type Current struct {
	Entry     track.Entry
	Handle    playback.Handle
	StartedAt time.Time
}

// Session is the playback state of one guild.
type Session struct {
	ID        string
	GuildID   snowflake.ID
	Playlist  *playlist.Playlist
	CreatedAt time.Time

	// turn serializes starting and skipping tracks so a skip cannot slip in
	// between polling an entry and recording it as current.
	turn sync.Mutex

	mu      sync.RWMutex
	current *Current
}

// New creates a session owning pl.
func New(guildID snowflake.ID, pl *playlist.Playlist) *Session {
	return &Session{
		ID:        uuid.New().String(),
		GuildID:   guildID,
		Playlist:  pl,
		CreatedAt: time.Now(),
	}
}

// LockTurn takes the session's playback turn. Callers that start or stop
// tracks hold it for the whole change.
func (s *Session) LockTurn() {
	s.turn.Lock()
}

// UnlockTurn releases the playback turn.
func (s *Session) UnlockTurn() {
	s.turn.Unlock()
}

// Current returns the current track, if any.
func (s *Session) Current() (Current, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Current{}, false
	}
	return *s.current, true
}

// State returns the playback state derived from the current handle.
func (s *Session) State() playback.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return playback.StateIdle
	}
	return playback.StateOf(s.current.Handle)
}

// IsPlaying reports whether a started stream is still running.
func (s *Session) IsPlaying() bool {
	return s.State() == playback.StatePlaying
}

// SetCurrent records a started track.
func (s *Session) SetCurrent(e track.Entry, h playback.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &Current{
		Entry:     e,
		Handle:    h,
		StartedAt: time.Now(),
	}
}

// ClearCurrent forgets the current track and returns what was cleared.
func (s *Session) ClearCurrent() (Current, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Current{}, false
	}
	cur := *s.current
	s.current = nil
	return cur, true
}
