package connect

import (
	"github.com/osa030/autodj/internal/app/session"
)

const (
	QueueServiceName = "autodj.v1.QueueService"
	AdminServiceName = "autodj.v1.AdminService"

	GetQueueProcedure     = "/" + QueueServiceName + "/GetQueue"
	ListSessionsProcedure = "/" + AdminServiceName + "/ListSessions"
	SkipProcedure         = "/" + AdminServiceName + "/Skip"
	WatchEventsProcedure  = "/" + AdminServiceName + "/WatchEvents"
)

type GetQueueRequest struct {
	GuildID string `json:"guild_id"`
}

type GetQueueResponse struct {
	Session session.Status `json:"session"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions       []session.Status `json:"sessions"`
	WorkersRunning int              `json:"workers_running"`
	WorkersPending int              `json:"workers_pending"`
}

type SkipRequest struct {
	GuildID string `json:"guild_id"`
}

type SkipResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}

type WatchEventsRequest struct{}
