package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Chain routes each URL to the first provider that supports it.
type Chain struct {
	providers []Provider
}

// NewChain creates a new provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) pick(url string) (Provider, error) {
	for _, p := range c.providers {
		if p.Supports(url) {
			return p, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedURL, "%s", url)
}

// Resolve returns the title of url from the matching provider.
func (c *Chain) Resolve(ctx context.Context, url string) (string, error) {
	p, err := c.pick(url)
	if err != nil {
		return "", err
	}

	zlog.Debug().Msgf("resolving title: provider=%s url=%s", p.Name(), url)
	title, err := p.Title(ctx, url)
	if err != nil {
		zlog.Debug().Msgf("title resolution failed: provider=%s url=%s error=%v", p.Name(), url, err)
		return "", errors.Wrapf(err, "%s", p.Name())
	}
	return title, nil
}

// StreamSource returns what the player should open for url. URLs from
// providers without a stream mapping are returned unchanged.
func (c *Chain) StreamSource(ctx context.Context, url string) (string, error) {
	p, err := c.pick(url)
	if err != nil {
		return "", err
	}
	sp, ok := p.(SourceProvider)
	if !ok {
		return url, nil
	}
	source, err := sp.StreamSource(ctx, url)
	if err != nil {
		return "", errors.Wrapf(err, "%s", p.Name())
	}
	zlog.Debug().Msgf("mapped stream source: provider=%s url=%s source=%s", p.Name(), url, source)
	return source, nil
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}
