package filter

import (
	"context"
	"net/url"
	"strings"
)

// DuplicateURLFilter rejects a request whose track is already waiting in the
// user queue. YouTube links are compared by video ID so that youtu.be,
// watch?v= and extra query parameters all count as the same track.
type DuplicateURLFilter struct{}

// NewDuplicateURLFilter creates a new duplicate URL filter.
func NewDuplicateURLFilter() *DuplicateURLFilter {
	return &DuplicateURLFilter{}
}

// Name returns the filter name.
func (f *DuplicateURLFilter) Name() string {
	return "duplicate_url_filter"
}

// Description returns the filter description.
func (f *DuplicateURLFilter) Description() string {
	return "Rejects tracks that are already waiting in the queue"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateURLFilter) ReturnCodes() []string {
	return []string{"duplicate_url"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateURLFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track is a duplicate.
func (f *DuplicateURLFilter) Check(ctx context.Context, req TrackRequest) Result {
	key := trackKey(req.URL)
	for _, queued := range req.Queued {
		if trackKey(queued.URL) == key {
			return Reject("duplicate_url")
		}
	}
	return Accept()
}

// trackKey reduces a URL to a comparable identity.
func trackKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	host := normalizeHost(u.Hostname())
	switch {
	case host == "youtu.be":
		return "youtube:" + strings.Trim(u.Path, "/")
	case host == "youtube.com" || host == "m.youtube.com" || host == "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return "youtube:" + v
		}
		if id, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return "youtube:" + strings.Trim(id, "/")
		}
	case host == "open.spotify.com":
		if i := strings.Index(u.Path, "/track/"); i >= 0 {
			return "spotify:track:" + strings.Trim(u.Path[i+len("/track/"):], "/")
		}
	}
	return host + strings.TrimRight(u.Path, "/") + "?" + u.RawQuery
}

func init() {
	Register("duplicate_url_filter", func() Filter {
		return NewDuplicateURLFilter()
	})
}
