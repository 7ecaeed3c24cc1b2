package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	zlog "github.com/rs/zerolog/log"
)

// TitleStore is a persistent url -> title map.
type TitleStore interface {
	Get(ctx context.Context, url string) (string, bool, error)
	Put(ctx context.Context, url, title string) error
}

// Cached remembers successful resolutions. Failures are never cached.
type Cached struct {
	next  Resolver
	mem   *lru.Cache[string, string]
	store TitleStore // optional
}

// NewCached wraps next with an LRU of size entries and an optional store.
func NewCached(next Resolver, size int, store TitleStore) (*Cached, error) {
	if size < 1 {
		size = 1
	}
	mem, err := lru.New[string, string](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create title cache")
	}
	return &Cached{next: next, mem: mem, store: store}, nil
}

// Resolve returns a cached title or resolves and records it.
func (c *Cached) Resolve(ctx context.Context, url string) (string, error) {
	if title, ok := c.mem.Get(url); ok {
		return title, nil
	}

	if c.store != nil {
		title, ok, err := c.store.Get(ctx, url)
		if err != nil {
			zlog.Warn().Msgf("title store read failed: url=%s error=%v", url, err)
		} else if ok {
			c.mem.Add(url, title)
			return title, nil
		}
	}

	title, err := c.next.Resolve(ctx, url)
	if err != nil {
		return "", err
	}

	c.mem.Add(url, title)
	if c.store != nil {
		if err := c.store.Put(ctx, url, title); err != nil {
			zlog.Warn().Msgf("title store write failed: url=%s error=%v", url, err)
		}
	}
	return title, nil
}

// Len returns the number of titles held in memory.
func (c *Cached) Len() int {
	return c.mem.Len()
}
