package autoplaylist

import (
	"math/rand/v2"
	"sync"
)

// Buffer is the working list of store URLs not yet drawn.
// Draws are uniform and without replacement until the buffer runs dry,
// at which point it is refilled from the store.
type Buffer struct {
	mu    sync.RWMutex
	store *Store
	urls  []string
	intn  func(n int) int
}

// NewBuffer creates an empty buffer backed by store.
func NewBuffer(store *Store) *Buffer {
	return &Buffer{
		store: store,
		intn:  rand.IntN,
	}
}

// Len returns the number of URLs left before the next refill.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.urls)
}

// Draw removes and returns one random URL.
// It returns false when both the buffer and the store are empty.
func (b *Buffer) Draw() (string, bool) {
	urls := b.DrawN(1)
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// DrawN removes and returns up to n distinct random URLs.
// The buffer is refilled at most once per call so a small store is not
// drawn twice within the same batch.
func (b *Buffer) DrawN(n int) []string {
	if n <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.urls) == 0 {
		b.urls = b.store.Snapshot()
	}

	out := make([]string, 0, min(n, len(b.urls)))
	for len(out) < n && len(b.urls) > 0 {
		i := b.intn(len(b.urls))
		last := len(b.urls) - 1
		out = append(out, b.urls[i])
		b.urls[i] = b.urls[last]
		b.urls = b.urls[:last]
	}
	return out
}

// Discard drops url if it is still waiting in the buffer.
func (b *Buffer) Discard(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, u := range b.urls {
		if u == url {
			last := len(b.urls) - 1
			b.urls[i] = b.urls[last]
			b.urls = b.urls[:last]
			return
		}
	}
}
