package httpserver

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"logstream-srv/pkg/errors"
	"logstream-srv/pkg/response"
)

const (
	serviceName  = "logstream-srv"
	checkTimeout = 2 * time.Second
)

var errNotReady = errors.NewHTTPError(503, "Service is not ready", http.StatusServiceUnavailable)

// healthCheck reports the state of the streams and the push hub.
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	hub := srv.wsUC.GetStats(ctx)

	response.OK(c, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"streams": srv.streamUC.Health(ctx),
		"websocket": gin.H{
			"active_connections": hub.ActiveConnections,
			"total_unique_users": hub.TotalUniqueUsers,
			"broker":             hub.Broker,
		},
	})
}

// readyCheck runs every dependency probe and fails when any of them does.
func (srv *HTTPServer) readyCheck(c *gin.Context) {
	results, ok := srv.runChecks(c.Request.Context())
	if !ok {
		srv.l.Warnf(c.Request.Context(), "internal.httpserver.readyCheck: %v", results)
		response.Error(c, errNotReady, nil)
		return
	}
	response.OK(c, gin.H{
		"status":       "ready",
		"service":      serviceName,
		"dependencies": results,
	})
}

// liveCheck only proves the process answers.
func (srv *HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "alive",
		"service": serviceName,
	})
}

func (srv *HTTPServer) runChecks(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(srv.checks))
	for name := range srv.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ok := true
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := srv.checks[name](cctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			ok = false
			continue
		}
		results[name] = "connected"
	}
	return results, ok
}
