package pprofserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	Handle(mux)
	return mux
}

// Launch a standard pprof server at addr until ctx is cancelled.
//
// Use a loopback address such as localhost:6060 so that the profiles are not open to the world.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	srv := &http.Server{ //nolint:exhaustruct // defaults are fine for a debug listener.
		Addr:              addr,
		Handler:           newServeMux(),
		ReadHeaderTimeout: time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close pprof server", errors.SlogError(errors.Wrap(err, "close")))
		}
	}()
	go func() {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server not started",
				errors.SlogError(errors.Wrap(err, "listen", slog.String("addr", addr))))
			return
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", listener.Addr().String()))
		if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(errors.Wrap(err, "serve")))
		}
	}()
}
