package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// QueueLimitConfig represents the configuration for QueueLimitFilter.
type QueueLimitConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" default:"20" validate:"gte=1"`
}

// QueueLimitFilter caps the number of user entries waiting in a guild.
type QueueLimitFilter struct {
	config *QueueLimitConfig
}

// NewQueueLimitFilter creates a new queue limit filter.
func NewQueueLimitFilter() *QueueLimitFilter {
	return &QueueLimitFilter{}
}

func (f *QueueLimitFilter) Name() string {
	return "queue_limit_filter"
}

func (f *QueueLimitFilter) Description() string {
	return "Rejects requests once the user queue reaches max_entries"
}

func (f *QueueLimitFilter) ReturnCodes() []string {
	return []string{"queue_full"}
}

func (f *QueueLimitFilter) ValidateConfig(settings map[string]any) error {
	var config QueueLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("queue limit filter config: %+v", config)
	return nil
}

func (f *QueueLimitFilter) Check(ctx context.Context, req TrackRequest) Result {
	// If config is not set, accept all requests
	if f.config == nil {
		return Accept()
	}
	if len(req.Queued) >= f.config.MaxEntries {
		return Reject("queue_full")
	}
	return Accept()
}

func init() {
	Register("queue_limit_filter", func() Filter {
		return NewQueueLimitFilter()
	})
}
