// Package resolver turns track URLs into display titles and stream sources.
package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrUnsupportedURL = errors.New("no provider supports url")

	// ErrThrottled marks a lookup that never reached a provider because no
	// rate limit token was available in time.
	ErrThrottled = errors.New("resolution throttled")

	// ErrTimedOut marks a provider call cut short by the per-call timeout.
	ErrTimedOut = errors.New("resolution timed out")
)

// IsTransient reports whether err says nothing about the URL itself, so the
// URL may be tried again later.
func IsTransient(err error) bool {
	return errors.IsAny(err, ErrThrottled, ErrTimedOut, context.Canceled, context.DeadlineExceeded)
}

// Resolver maps a URL to its title. Implementations must be safe for
// concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Locator maps a URL to something the audio pipeline can open.
type Locator interface {
	StreamSource(ctx context.Context, url string) (string, error)
}

// Provider is one title backend, such as yt-dlp or the Spotify API.
type Provider interface {
	// Name returns the provider name (used in config).
	Name() string

	// Supports reports whether the provider recognises url.
	Supports(url string) bool

	// Title looks up the title of url.
	Title(ctx context.Context, url string) (string, error)
}

// SourceProvider is a Provider whose URLs cannot be streamed as-is.
type SourceProvider interface {
	Provider
	StreamSource(ctx context.Context, url string) (string, error)
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, url string) (string, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}
