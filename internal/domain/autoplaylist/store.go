// Package autoplaylist provides the fallback URL set and its refill buffer.
package autoplaylist

import "sync"

// Store is the set of known autoplaylist URLs.
// After construction it only shrinks, when a URL fails to resolve.
type Store struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewStore creates a store from urls, dropping duplicates.
func NewStore(urls []string) *Store {
	s := &Store{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.urls[u] = struct{}{}
	}
	return s
}

// Len returns the number of known URLs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}

// Contains reports whether url is still known.
func (s *Store) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

// Remove prunes url. It reports whether the URL was present.
func (s *Store) Remove(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; !ok {
		return false
	}
	delete(s.urls, url)
	return true
}

// Snapshot returns a copy of the URLs in no particular order.
func (s *Store) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.urls))
	for u := range s.urls {
		out = append(out, u)
	}
	return out
}
