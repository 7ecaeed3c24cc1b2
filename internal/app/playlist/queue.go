package playlist

import (
	"sync"

	"github.com/osa030/autodj/internal/domain/track"
)

// entryQueue is a FIFO of entries with its own lock.
type entryQueue struct {
	mu    sync.RWMutex
	items []track.Entry
}

func (q *entryQueue) push(e track.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, e)
}

func (q *entryQueue) pop() (track.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return track.Entry{}, false
	}
	e := q.items[0]
	q.items[0] = track.Entry{}
	q.items = q.items[1:]
	return e, true
}

func (q *entryQueue) contains(url string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, e := range q.items {
		if e.URL == url {
			return true
		}
	}
	return false
}

func (q *entryQueue) len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *entryQueue) snapshot() []track.Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]track.Entry, len(q.items))
	copy(out, q.items)
	return out
}
