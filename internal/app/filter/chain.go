package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds the chain: the URL filter always runs first,
// then every registered filter enabled in cfg, in name order.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	c := NewChain()

	urlFilter := NewURLFilter()
	if err := urlFilter.ValidateConfig(cfg.FilterSettings(urlFilter.Name())); err != nil {
		return nil, errors.Wrapf(err, "invalid %s config", urlFilter.Name())
	}
	c.Add(urlFilter)

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == urlFilter.Name() || !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg.FilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "invalid %s config", name)
		}
		c.Add(f)
		zlog.Info().Msgf("filter enabled: %s", name)
	}

	for name := range cfg.Filters {
		if _, ok := registry[name]; !ok {
			zlog.Warn().Msgf("unknown filter in config: %s", name)
		}
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the request.
func (c *Chain) Execute(ctx context.Context, req TrackRequest) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, req)
		if !result.Accepted {
			zlog.Debug().Msgf("request rejected: filter=%s code=%s url=%s", f.Name(), result.Code, req.URL)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
