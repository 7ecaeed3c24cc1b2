package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/autodj/internal/app/session"
)

// QueueService implements the public QueueService RPC.
type QueueService struct {
	sessions Sessions
}

// NewQueueService creates a new QueueService.
func NewQueueService(sessions Sessions) *QueueService {
	return &QueueService{sessions: sessions}
}

// GetQueue returns the guild's now playing entry and upcoming titles.
func (s *QueueService) GetQueue(
	ctx context.Context,
	req *connect.Request[GetQueueRequest],
) (*connect.Response[GetQueueResponse], error) {
	guildID, err := parseGuildID(req.Msg.GuildID)
	if err != nil {
		return nil, err
	}

	status, err := s.sessions.Status(guildID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetQueueResponse{Session: status}), nil
}

// NewQueueServiceHandler builds the HTTP handler for QueueService.
func NewQueueServiceHandler(svc *QueueService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	getQueue := connect.NewUnaryHandler(GetQueueProcedure, svc.GetQueue, opts...)

	return "/" + QueueServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GetQueueProcedure:
			getQueue.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func parseGuildID(raw string) (snowflake.ID, error) {
	id, err := snowflake.Parse(raw)
	if err != nil {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.Wrapf(err, "invalid guild id %q", raw))
	}
	return id, nil
}
