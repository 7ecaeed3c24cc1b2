package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/autodj/internal/app/notification"
	"github.com/osa030/autodj/internal/app/session"
	"github.com/osa030/autodj/internal/domain/track"
)

// Sessions is the session manager as seen by the RPC services.
type Sessions interface {
	Status(guildID snowflake.ID) (session.Status, error)
	List() []session.Status
	Skip(ctx context.Context, guildID snowflake.ID) (track.Entry, bool)
	Workers() (running, pending int)
	GetNotificationManager() *notification.Manager
	Done() <-chan struct{}
}

// AdminService implements the AdminService RPC.
type AdminService struct {
	sessions Sessions
}

// NewAdminService creates a new AdminService.
func NewAdminService(sessions Sessions) *AdminService {
	return &AdminService{sessions: sessions}
}

// ListSessions returns every guild session.
func (s *AdminService) ListSessions(
	ctx context.Context,
	req *connect.Request[ListSessionsRequest],
) (*connect.Response[ListSessionsResponse], error) {
	running, pending := s.sessions.Workers()
	return connect.NewResponse(&ListSessionsResponse{
		Sessions:       s.sessions.List(),
		WorkersRunning: running,
		WorkersPending: pending,
	}), nil
}

// Skip skips the current track of a guild.
func (s *AdminService) Skip(
	ctx context.Context,
	req *connect.Request[SkipRequest],
) (*connect.Response[SkipResponse], error) {
	guildID, err := parseGuildID(req.Msg.GuildID)
	if err != nil {
		return nil, err
	}

	entry, ok := s.sessions.Skip(ctx, guildID)
	if !ok {
		return connect.NewResponse(&SkipResponse{
			Success: false,
			Message: "Nothing is playing",
		}), nil
	}

	return connect.NewResponse(&SkipResponse{
		Success: true,
		Message: "Track skipped",
		Title:   entry.Title,
	}), nil
}

// WatchEvents streams playback events until the client goes away or the
// monitor stops.
func (s *AdminService) WatchEvents(
	ctx context.Context,
	req *connect.Request[WatchEventsRequest],
	stream *connect.ServerStream[notification.Notification],
) error {
	notifManager := s.sessions.GetNotificationManager()
	subscriptionID := notifManager.Subscribe(&notificationStreamAdapter{stream: stream})
	defer notifManager.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.sessions.Done():
	}
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	return a.stream.Send(n)
}

// NewAdminServiceHandler builds the HTTP handler for AdminService.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	listSessions := connect.NewUnaryHandler(ListSessionsProcedure, svc.ListSessions, opts...)
	skip := connect.NewUnaryHandler(SkipProcedure, svc.Skip, opts...)
	watchEvents := connect.NewServerStreamHandler(WatchEventsProcedure, svc.WatchEvents, opts...)

	return "/" + AdminServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ListSessionsProcedure:
			listSessions.ServeHTTP(w, r)
		case SkipProcedure:
			skip.ServeHTTP(w, r)
		case WatchEventsProcedure:
			watchEvents.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
