package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/autodj/internal/app/notification"
)

// Client calls the queue and admin services.
type Client struct {
	token        string
	getQueue     *connect.Client[GetQueueRequest, GetQueueResponse]
	listSessions *connect.Client[ListSessionsRequest, ListSessionsResponse]
	skip         *connect.Client[SkipRequest, SkipResponse]
	watchEvents  *connect.Client[WatchEventsRequest, notification.Notification]
}

// NewClient creates a client for the server at baseURL. token is sent on
// admin calls.
func NewClient(httpClient connect.HTTPClient, baseURL, token string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts := []connect.ClientOption{connect.WithCodec(jsonCodec{})}
	return &Client{
		token:        token,
		getQueue:     connect.NewClient[GetQueueRequest, GetQueueResponse](httpClient, baseURL+GetQueueProcedure, opts...),
		listSessions: connect.NewClient[ListSessionsRequest, ListSessionsResponse](httpClient, baseURL+ListSessionsProcedure, opts...),
		skip:         connect.NewClient[SkipRequest, SkipResponse](httpClient, baseURL+SkipProcedure, opts...),
		watchEvents:  connect.NewClient[WatchEventsRequest, notification.Notification](httpClient, baseURL+WatchEventsProcedure, opts...),
	}
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set(AdminTokenHeader, c.token)
	}
}

// GetQueue fetches a guild's queue.
func (c *Client) GetQueue(ctx context.Context, guildID string) (*GetQueueResponse, error) {
	resp, err := c.getQueue.CallUnary(ctx, connect.NewRequest(&GetQueueRequest{GuildID: guildID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ListSessions lists every session.
func (c *Client) ListSessions(ctx context.Context) (*ListSessionsResponse, error) {
	req := connect.NewRequest(&ListSessionsRequest{})
	c.authorize(req.Header())
	resp, err := c.listSessions.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Skip skips a guild's current track.
func (c *Client) Skip(ctx context.Context, guildID string) (*SkipResponse, error) {
	req := connect.NewRequest(&SkipRequest{GuildID: guildID})
	c.authorize(req.Header())
	resp, err := c.skip.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// WatchEvents calls fn for each event until ctx ends or the stream closes.
func (c *Client) WatchEvents(ctx context.Context, fn func(*notification.Notification)) error {
	req := connect.NewRequest(&WatchEventsRequest{})
	c.authorize(req.Header())
	stream, err := c.watchEvents.CallServerStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		fn(stream.Msg())
	}
	return stream.Err()
}
