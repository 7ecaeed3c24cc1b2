package resolver

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/infra/config"
	"github.com/osa030/autodj/internal/infra/spotify"
	"github.com/osa030/autodj/internal/infra/titlecache"
	"github.com/osa030/autodj/internal/infra/ytdlp"
)

// Options configures the layers wrapped around a provider chain.
type Options struct {
	RatePerSec float64
	Burst      int
	CacheSize  int        // zero disables caching
	Store      TitleStore // optional persistent cache
	Timeout    time.Duration
}

// Service is the resolver used by the rest of the application:
// cache, then rate limit, then the provider chain.
type Service struct {
	chain    *Chain
	resolver Resolver
	cache    *Cached
	timeout  time.Duration
	closers  []io.Closer
	streamer *ytdlp.Client
}

// New wraps chain according to opts.
func New(chain *Chain, opts Options) (*Service, error) {
	s := &Service{
		chain:   chain,
		timeout: opts.Timeout,
	}

	// The timeout starts once a token is held, so waiting for the limiter
	// never eats into a provider's time.
	var r Resolver = NewLimited(withTimeout(chain, opts.Timeout), opts.RatePerSec, opts.Burst)
	if opts.CacheSize > 0 {
		cached, err := NewCached(r, opts.CacheSize, opts.Store)
		if err != nil {
			return nil, err
		}
		s.cache = cached
		r = cached
	}
	s.resolver = r
	return s, nil
}

// NewFromConfig builds the provider chain and its wrappers from configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	if len(cfg.Resolver.Providers) == 0 {
		return nil, errors.New("no resolver providers configured")
	}

	var providers []Provider
	var streamer *ytdlp.Client
	for i, pcfg := range cfg.Resolver.Providers {
		zlog.Debug().Msgf("creating resolver provider: index=%d type=%s", i+1, pcfg.Type)

		provider, err := newProvider(ctx, pcfg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}
		providers = append(providers, provider)
		if yt, ok := provider.(*ytdlp.Client); ok && streamer == nil {
			streamer = yt
		}

		zlog.Info().Msgf("registered resolver provider: index=%d type=%s", i+1, pcfg.Type)
	}

	opts := Options{
		RatePerSec: cfg.Resolver.RatePerSec,
		Burst:      cfg.Resolver.Burst,
		CacheSize:  cfg.Resolver.Cache.Size,
		Timeout:    cfg.ResolveTimeout(),
	}

	var closers []io.Closer
	if path := cfg.Resolver.Cache.Path; path != "" && opts.CacheSize > 0 {
		store, err := titlecache.Open(path)
		if err != nil {
			return nil, err
		}
		opts.Store = store
		closers = append(closers, store)
		zlog.Info().Msgf("persistent title cache enabled: path=%s", path)
	}

	s, err := New(NewChain(providers...), opts)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}
	s.closers = closers
	if streamer == nil {
		streamer = ytdlp.New(ytdlp.Config{})
	}
	s.streamer = streamer
	return s, nil
}

func newProvider(ctx context.Context, pcfg config.ProviderConfig) (Provider, error) {
	switch pcfg.Type {
	case "ytdlp":
		var settings ytdlp.Config
		if err := decodeSettings(pcfg.Settings, &settings); err != nil {
			return nil, err
		}
		return ytdlp.New(settings), nil

	case "spotify":
		var settings spotify.Config
		if err := decodeSettings(pcfg.Settings, &settings); err != nil {
			return nil, err
		}
		return spotify.New(ctx, settings)

	default:
		return nil, errors.Newf("unsupported provider type: %s", pcfg.Type)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// Resolve returns the title for url.
func (s *Service) Resolve(ctx context.Context, url string) (string, error) {
	return s.resolver.Resolve(ctx, url)
}

// StreamSource returns what the player should open for url.
func (s *Service) StreamSource(ctx context.Context, url string) (string, error) {
	if s.timeout <= 0 {
		return s.chain.StreamSource(ctx, url)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	source, err := s.chain.StreamSource(callCtx, url)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", errors.Mark(errors.Wrapf(err, "no stream source within %s", s.timeout), ErrTimedOut)
	}
	return source, err
}

// Streamer returns the yt-dlp client used to fetch audio. It carries the
// settings of the configured ytdlp provider when there is one.
func (s *Service) Streamer() *ytdlp.Client {
	if s.streamer == nil {
		return ytdlp.New(ytdlp.Config{})
	}
	return s.streamer
}

// CachedTitles returns the number of titles held in memory.
func (s *Service) CachedTitles() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Close releases the persistent cache.
func (s *Service) Close() error {
	var errs error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}
