// Package notification delivers playback events to chat and to event subscribers.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodj/internal/app/playback"
	"github.com/osa030/autodj/internal/infra/config"
)

// Sender posts a message to a text channel.
type Sender interface {
	Send(ctx context.Context, channelID snowflake.ID, content string) error
}

// Notification is the subscriber view of a playback event.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       string    `json:"type"`
	GuildID    string    `json:"guild_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager formats playback events for chat and fans them out to subscribers.
// Delivery is best effort: failures are logged and dropped.
type Manager struct {
	sender      Sender
	messages    config.MessagesConfig
	sendTimeout time.Duration

	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager(sender Sender, messages config.MessagesConfig) *Manager {
	return &Manager{
		sender:        sender,
		messages:      messages,
		sendTimeout:   3 * time.Second,
		subscriptions: make(map[string]*subscription),
	}
}

// Format wraps text in a code block.
func Format(text string) string {
	return "```" + text + "```"
}

// Reply posts text to channelID.
func (m *Manager) Reply(ctx context.Context, channelID snowflake.ID, text string) {
	if m.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	if err := m.sender.Send(ctx, channelID, Format(text)); err != nil {
		zlog.Debug().Msgf("failed to send message: channel=%s error=%v", channelID, err)
	}
}

// Publish reports ev to the requester's channel, if any, and to subscribers.
func (m *Manager) Publish(ctx context.Context, ev playback.Event) {
	if channelID, ok := ev.Entry.ReportChannel(); ok {
		switch ev.Type {
		case playback.EventTrackStarted:
			m.Reply(ctx, channelID, fmt.Sprintf(m.messages.NowPlaying, ev.Entry.Title))
		case playback.EventTrackFailed:
			m.Reply(ctx, channelID, fmt.Sprintf(m.messages.PlaybackFailed, ev.Entry.Title))
		}
	}

	n := &Notification{
		Type:    ev.Type.String(),
		GuildID: ev.GuildID.String(),
		Title:   ev.Entry.Title,
		URL:     ev.Entry.URL,
		Time:    time.Now(),
	}
	if ev.Err != nil {
		n.Error = ev.Err.Error()
	}
	m.Broadcast(n)
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sends a notification to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(notification *Notification) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	notification.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("subscriber send failed: id=%s error=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("subscriber send timed out: id=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
