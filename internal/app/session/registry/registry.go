// Package registry holds the per-guild sessions.
package registry

import (
	"sort"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/autodj/internal/app/session/state"
)

// SessionRegistry manages guild sessions with thread-safe access.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*state.Session
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[snowflake.ID]*state.Session),
	}
}

// Get retrieves the session of a guild.
func (r *SessionRegistry) Get(guildID snowflake.ID) (*state.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

// Add stores s unless the guild already has a session.
// It returns the session that ends up registered.
func (r *SessionRegistry) Add(s *state.Session) *state.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.GuildID]; ok {
		return existing
	}
	r.sessions[s.GuildID] = s
	return s
}

// All returns all sessions ordered by guild ID.
func (r *SessionRegistry) All() []*state.Session {
	r.mu.RLock()
	result := make([]*state.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].GuildID < result[j].GuildID
	})
	return result
}

// Count returns the number of sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
