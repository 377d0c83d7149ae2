package httpserver

import (
	alertHTTP "logstream-srv/internal/alert/delivery/http"
	"logstream-srv/internal/middleware"
	streamHTTP "logstream-srv/internal/stream/delivery/http"
	wsHTTP "logstream-srv/internal/websocket/delivery/http"
)

const Api = "/api/v1"

func (srv *HTTPServer) mapHandlers() {
	srv.gin.Use(middleware.Recovery(srv.l, srv.discord))

	corsConfig := middleware.DefaultCORSConfig()
	if len(srv.wsConfig.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = srv.wsConfig.AllowedOrigins
	}
	srv.gin.Use(middleware.CORS(corsConfig))

	// Health check endpoints (no auth required)
	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/ready", srv.readyCheck)
	srv.gin.GET("/live", srv.liveCheck)

	mw := middleware.New(srv.l, srv.jwtMgr, srv.cookieCfg.Name)
	api := srv.gin.Group(Api)

	wsHandler := wsHTTP.New(srv.l, srv.wsUC, srv.jwtMgr,
		wsHTTP.WSConfig{
			ReadBufferSize:  srv.wsConfig.ReadBufferSize,
			WriteBufferSize: srv.wsConfig.WriteBufferSize,
			AllowedOrigins:  srv.wsConfig.AllowedOrigins,
		},
		wsHTTP.CookieConfig{Name: srv.cookieCfg.Name},
	)
	wsHandler.RegisterRoutes(srv.gin, api, mw)

	streamHTTP.New(srv.l, srv.streamUC, srv.processorUC, srv.discord).RegisterRoutes(api, mw)

	if srv.alertUC != nil {
		alertHTTP.New(srv.l, srv.alertUC, srv.discord).RegisterRoutes(api, mw)
	}
}
