package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Run maps the routes, starts the push hub, restores active streams and
// serves HTTP until ctx is done. Shutdown then proceeds in reverse: the
// HTTP listener, the stream loops with the processor, and finally the hub.
func (srv *HTTPServer) Run(ctx context.Context) error {
	srv.mapHandlers()

	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHub()
	go srv.wsUC.Run(hubCtx)
	srv.l.Info(ctx, "internal.httpserver.Run: websocket hub started")

	if srv.restoreOnBoot {
		n, err := srv.streamUC.RestoreActive(ctx)
		if err != nil {
			srv.l.Errorf(ctx, "internal.httpserver.Run.RestoreActive: %v", err)
		} else {
			srv.l.Infof(ctx, "internal.httpserver.Run: restored %d streams", n)
		}
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", srv.host, srv.port),
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	srv.l.Infof(ctx, "internal.httpserver.Run: listening on %s", httpSrv.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		srv.l.Info(ctx, "internal.httpserver.Run: shutdown requested")
	case err := <-errCh:
		runErr = err
		srv.l.Errorf(ctx, "internal.httpserver.Run.ListenAndServe: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, srv.shutdown(shutdownCtx, httpSrv))
}

func (srv *HTTPServer) shutdown(ctx context.Context, httpSrv *http.Server) error {
	var errs []error
	if err := httpSrv.Shutdown(ctx); err != nil {
		srv.l.Errorf(ctx, "internal.httpserver.shutdown.HTTP: %v", err)
		errs = append(errs, err)
	}
	if err := srv.streamUC.Shutdown(ctx); err != nil {
		srv.l.Errorf(ctx, "internal.httpserver.shutdown.Streams: %v", err)
		errs = append(errs, err)
	}
	if err := srv.wsUC.Shutdown(ctx); err != nil {
		srv.l.Errorf(ctx, "internal.httpserver.shutdown.WebSocket: %v", err)
		errs = append(errs, err)
	}
	srv.l.Info(ctx, "internal.httpserver.shutdown: done")
	return errors.Join(errs...)
}
