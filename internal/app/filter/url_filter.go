package filter

import (
	"context"
	"net/url"
	"strings"
)

// URLFilterConfig represents the configuration for URLFilter.
type URLFilterConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" mapstructure:"allowed_hosts"`
}

// URLFilter rejects anything that is not an http(s) link or a Spotify URI.
// When allowed_hosts is set, links must point at one of those hosts.
type URLFilter struct {
	config URLFilterConfig
}

// NewURLFilter creates a URL filter accepting any host.
func NewURLFilter() *URLFilter {
	return &URLFilter{}
}

func (f *URLFilter) Name() string {
	return "url_filter"
}

func (f *URLFilter) Description() string {
	return "Rejects requests that are not http(s) links or Spotify track URIs"
}

func (f *URLFilter) ReturnCodes() []string {
	return []string{"invalid_url"}
}

func (f *URLFilter) ValidateConfig(settings map[string]any) error {
	var config URLFilterConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	for i, h := range config.AllowedHosts {
		config.AllowedHosts[i] = normalizeHost(h)
	}
	f.config = config
	return nil
}

func (f *URLFilter) Check(ctx context.Context, req TrackRequest) Result {
	raw := strings.TrimSpace(req.URL)
	if strings.HasPrefix(raw, "spotify:track:") && len(raw) > len("spotify:track:") {
		return Accept()
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Reject("invalid_url")
	}

	if len(f.config.AllowedHosts) == 0 {
		return Accept()
	}
	host := normalizeHost(u.Hostname())
	for _, allowed := range f.config.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return Accept()
		}
	}
	return Reject("invalid_url")
}

func normalizeHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "www.")
}

func init() {
	Register("url_filter", func() Filter {
		return NewURLFilter()
	})
}
