package connect

import (
	"net/http"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/autodj/internal/infra/config"
)

// NewHandler mounts QueueService and the token protected AdminService.
func NewHandler(cfg *config.Config, sessions Sessions) http.Handler {
	mux := http.NewServeMux()

	queuePath, queueHandler := NewQueueServiceHandler(NewQueueService(sessions))
	adminPath, adminHandler := NewAdminServiceHandler(
		NewAdminService(sessions),
		connect.WithInterceptors(NewAdminAuthInterceptor(cfg)),
	)

	mux.Handle(queuePath, queueHandler)
	mux.Handle(adminPath, adminHandler)
	return mux
}

// NewServer creates an HTTP server with h2c (HTTP/2 cleartext) support.
func NewServer(cfg *config.Config, sessions Sessions) *http.Server {
	return &http.Server{
		Addr:    cfg.Admin.Addr,
		Handler: h2c.NewHandler(NewHandler(cfg, sessions), &http2.Server{}),
	}
}
