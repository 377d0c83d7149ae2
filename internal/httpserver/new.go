package httpserver

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"logstream-srv/config"
	"logstream-srv/internal/alert"
	"logstream-srv/internal/processor"
	"logstream-srv/internal/stream"
	ws "logstream-srv/internal/websocket"
	"logstream-srv/pkg/discord"
	pkgJwt "logstream-srv/pkg/jwt"
	"logstream-srv/pkg/log"
)

// Check probes one backing service for /ready.
type Check func(ctx context.Context) error

// HTTPServer owns the gin engine and the lifecycle of the long-running
// use cases. New only wires dependencies; Run starts everything.
type HTTPServer struct {
	// Server configuration
	gin         *gin.Engine
	l           log.Logger
	host        string
	port        int
	environment string

	// Core
	wsUC          ws.UseCase
	streamUC      stream.UseCase
	alertUC       alert.UseCase
	processorUC   processor.UseCase
	wsConfig      config.WebSocketConfig
	restoreOnBoot bool

	// Auth & security
	jwtMgr    pkgJwt.Manager
	cookieCfg config.CookieConfig

	// External services
	checks  map[string]Check
	discord discord.IDiscord
}

// Config is the constructor input for HTTPServer.
type Config struct {
	// Server configuration
	Host        string
	Port        int
	Environment string
	Mode        string

	// Core
	WebSocket     ws.UseCase
	Streams       stream.UseCase
	Alerts        alert.UseCase
	Processor     processor.UseCase
	WSConfig      config.WebSocketConfig
	RestoreOnBoot bool

	// Auth & security
	JWTManager pkgJwt.Manager
	Cookie     config.CookieConfig

	// External services
	Checks  map[string]Check
	Discord discord.IDiscord
}

// New creates a new HTTPServer. It does not start any goroutine.
func New(l log.Logger, cfg Config) (*HTTPServer, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	srv := &HTTPServer{
		gin:         gin.New(),
		l:           l,
		host:        cfg.Host,
		port:        cfg.Port,
		environment: cfg.Environment,

		wsUC:          cfg.WebSocket,
		streamUC:      cfg.Streams,
		alertUC:       cfg.Alerts,
		processorUC:   cfg.Processor,
		wsConfig:      cfg.WSConfig,
		restoreOnBoot: cfg.RestoreOnBoot,

		jwtMgr:    cfg.JWTManager,
		cookieCfg: cfg.Cookie,

		checks:  cfg.Checks,
		discord: cfg.Discord,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}
	return srv, nil
}

// validate ensures all required dependencies are provided.
func (srv *HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.jwtMgr == nil {
		return errors.New("JWTManager is required")
	}
	if srv.wsUC == nil {
		return errors.New("websocket use case is required")
	}
	if srv.streamUC == nil {
		return errors.New("stream use case is required")
	}
	return nil
}
