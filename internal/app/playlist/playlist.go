// Package playlist implements a per-guild play queue: user requests first,
// then a shuffled autoplaylist that is resolved ahead of time.
package playlist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/autodj/internal/app/resolver"
	"github.com/osa030/autodj/internal/app/worker"
	"github.com/osa030/autodj/internal/domain/autoplaylist"
	"github.com/osa030/autodj/internal/domain/track"
)

// ErrResolutionFailed is returned by Push when the URL has no title.
var ErrResolutionFailed = errors.New("failed to resolve track")

// DefaultTargetSize is how many autoplaylist entries are kept resolved.
const DefaultTargetSize = 5

// Scheduler runs detached background work.
type Scheduler interface {
	Submit(task worker.Task) error
}

// Config configures a Playlist.
type Config struct {
	Path        string // autoplaylist file, empty for none
	TargetSize  int    // resolved autoplaylist entries to keep ready
	Concurrency int    // parallel resolutions while priming
}

// Stats is a point-in-time view of the queue sizes.
type Stats struct {
	Regular      int `json:"regular"`
	Autoplaylist int `json:"autoplaylist"`
	Store        int `json:"store"`
	Buffer       int `json:"buffer"`
}

// Playlist is safe for concurrent use. Each inner structure has its own
// lock; operations spanning several of them are not atomic.
type Playlist struct {
	resolver    resolver.Resolver
	locator     resolver.Locator // optional, from resolvers that also map sources
	scheduler   Scheduler
	target      int
	concurrency int

	store   *autoplaylist.Store
	buffer  *autoplaylist.Buffer
	regular entryQueue
	auto    entryQueue
}

// New loads the autoplaylist at cfg.Path and primes it before returning.
// An unreadable file is logged and treated as an empty autoplaylist.
func New(ctx context.Context, cfg Config, r resolver.Resolver, s Scheduler) *Playlist {
	urls, err := autoplaylist.Load(cfg.Path)
	if err != nil {
		zlog.Warn().Msgf("autoplaylist unavailable, continuing without it: %v", err)
	}
	return NewWithURLs(ctx, urls, cfg, r, s)
}

// NewWithURLs builds a playlist from an in-memory autoplaylist.
func NewWithURLs(ctx context.Context, urls []string, cfg Config, r resolver.Resolver, s Scheduler) *Playlist {
	store := autoplaylist.NewStore(urls)
	p := &Playlist{
		resolver:    r,
		scheduler:   s,
		target:      cfg.TargetSize,
		concurrency: cfg.Concurrency,
		store:       store,
		buffer:      autoplaylist.NewBuffer(store),
	}
	if l, ok := r.(resolver.Locator); ok {
		p.locator = l
	}
	if p.target <= 0 {
		p.target = DefaultTargetSize
	}
	if p.concurrency <= 0 {
		p.concurrency = p.target
	}

	p.prime(ctx)
	return p
}

// prime resolves min(target, store size) distinct entries in parallel,
// pruning failures, until enough succeed or the store runs out. A batch that
// neither resolves nor prunes anything ends priming early.
func (p *Playlist) prime(ctx context.Context) {
	want := min(p.target, p.store.Len())
	if want == 0 {
		return
	}

	start := time.Now()
	primed := make(map[string]struct{}, want)
	remaining := want

	for remaining > 0 && p.store.Len() > 0 && ctx.Err() == nil {
		var batch []string
		for _, u := range p.buffer.DrawN(remaining) {
			if _, ok := primed[u]; !ok {
				batch = append(batch, u)
			}
		}
		// Everything left in the store is already queued.
		if len(batch) == 0 {
			break
		}

		ok := make([]bool, len(batch))
		var pruned atomic.Int32
		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for i, u := range batch {
			g.Go(func() error {
				e, err := p.lookupAuto(ctx, u)
				if err != nil {
					if p.prune(ctx, u, err) {
						pruned.Add(1)
					}
					return nil
				}
				p.auto.push(e)
				ok[i] = true
				return nil
			})
		}
		_ = g.Wait()

		progressed := pruned.Load() > 0
		for i, u := range batch {
			if ok[i] {
				primed[u] = struct{}{}
				remaining--
				progressed = true
			}
		}
		if !progressed {
			zlog.Warn().Msgf("autoplaylist priming stopped: lookups unavailable, ready=%d want=%d", p.auto.len(), want)
			break
		}
	}

	zlog.Info().Msgf("autoplaylist primed: ready=%d want=%d store=%d elapsed=%s",
		p.auto.len(), want, p.store.Len(), time.Since(start).Round(time.Millisecond))
}

// lookup resolves the title of url and, when the resolver can map one, its
// stream source, so starting playback needs no further lookups.
func (p *Playlist) lookup(ctx context.Context, url string) (title, source string, err error) {
	title, err = p.resolver.Resolve(ctx, url)
	if err != nil {
		return "", "", err
	}
	if p.locator == nil {
		return title, "", nil
	}
	source, err = p.locator.StreamSource(ctx, url)
	if err != nil {
		return "", "", errors.Wrap(err, "stream source")
	}
	return title, source, nil
}

func (p *Playlist) lookupAuto(ctx context.Context, url string) (track.Entry, error) {
	title, source, err := p.lookup(ctx, url)
	if err != nil {
		return track.Entry{}, err
	}
	e := track.NewAutoEntry(title, url)
	e.Source = source
	return e, nil
}

// prune drops a URL that failed to resolve and reports whether it did.
// Cancellation, throttling and timeouts say nothing about the URL and are
// ignored.
func (p *Playlist) prune(ctx context.Context, url string, err error) bool {
	if ctx.Err() != nil || resolver.IsTransient(err) {
		zlog.Debug().Msgf("keeping autoplaylist url after transient failure: url=%s error=%v", url, err)
		return false
	}
	if !p.store.Remove(url) {
		return false
	}
	p.buffer.Discard(url)
	zlog.Warn().Msgf("removed unresolvable autoplaylist url: url=%s remaining=%d error=%v",
		url, p.store.Len(), err)
	return true
}

// Push resolves url and appends it to the user queue.
// Nothing is queued when resolution fails.
func (p *Playlist) Push(ctx context.Context, url string, channel *snowflake.ID) (string, error) {
	title, source, err := p.lookup(ctx, url)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "push %s", url), ErrResolutionFailed)
	}

	e := track.NewUserEntry(title, url, channel)
	e.Source = source
	p.regular.push(e)
	zlog.Debug().Msgf("queued user track: title=%s url=%s", title, url)
	return title, nil
}

// Poll returns the next entry to play. User entries always come first.
// When refills have fallen behind, one autoplaylist URL is resolved on the
// caller. Every autoplaylist entry returned schedules one background refill.
func (p *Playlist) Poll(ctx context.Context) (track.Entry, bool) {
	if e, ok := p.regular.pop(); ok {
		return e, true
	}

	if p.store.Len() == 0 {
		return track.Entry{}, false
	}

	e, ok := p.auto.pop()
	if !ok {
		e, ok = p.resolveNext(ctx, 1)
		if !ok {
			return track.Entry{}, false
		}
	}

	p.replenish()
	return e, true
}

// resolveNext draws random URLs that are not already queued and resolves
// them until one succeeds, tries lookups have been made, or the store is
// exhausted. tries <= 0 means no limit. A transient failure ends the attempt.
func (p *Playlist) resolveNext(ctx context.Context, tries int) (track.Entry, bool) {
	skipped := 0
	for ctx.Err() == nil {
		url, ok := p.buffer.Draw()
		if !ok {
			return track.Entry{}, false
		}
		if p.auto.contains(url) {
			skipped++
			if skipped >= p.store.Len() {
				return track.Entry{}, false
			}
			continue
		}

		e, err := p.lookupAuto(ctx, url)
		if err == nil {
			return e, true
		}
		if !p.prune(ctx, url, err) && resolver.IsTransient(err) {
			return track.Entry{}, false
		}
		if tries--; tries == 0 {
			return track.Entry{}, false
		}
	}
	return track.Entry{}, false
}

func (p *Playlist) replenish() {
	err := p.scheduler.Submit(func(ctx context.Context) {
		if e, ok := p.resolveNext(ctx, 0); ok {
			p.auto.push(e)
		}
	})
	if err != nil {
		zlog.Debug().Msgf("autoplaylist refill not scheduled: %v", err)
	}
}

// Queue returns the titles waiting to play, user entries first.
func (p *Playlist) Queue() []string {
	regular := p.regular.snapshot()
	auto := p.auto.snapshot()
	return append(track.Titles(regular), track.Titles(auto)...)
}

// Pending returns the user entries waiting to play.
func (p *Playlist) Pending() []track.Entry {
	return p.regular.snapshot()
}

// Stats returns the current queue sizes.
func (p *Playlist) Stats() Stats {
	return Stats{
		Regular:      p.regular.len(),
		Autoplaylist: p.auto.len(),
		Store:        p.store.Len(),
		Buffer:       p.buffer.Len(),
	}
}
