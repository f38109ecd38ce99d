package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/logging"
)

const (
	// LogAddrKey is the key used to log the address the server is listening on.
	LogAddrKey = "addr"
	// LogAnalysisModeKey is the key used to log whether the analyst is remote or offline.
	LogAnalysisModeKey = "analysis_mode"
	// HealthPath answers 200 once the server accepts requests.
	HealthPath = "/api/healthy"
)

// Server is a running web application with a default browser session.
type Server struct {
	url          string
	analysisMode string
	client       *Client
}

// startupLog collects the attributes the application logs while starting.
type startupLog struct {
	mu    sync.Mutex
	mode  string
	addrC chan string
}

func (l *startupLog) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case LogAddrKey:
		select {
		case l.addrC <- a.Value.String():
		default:
		}
	case LogAnalysisModeKey:
		l.mu.Lock()
		l.mode = a.Value.String()
		l.mu.Unlock()
	}
	return a
}

func (l *startupLog) analysisMode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// StartServer runs the application and returns once it answers on [HealthPath].
//
// Server logs go to logSink, usually [io.Discard]. The configuration is read through lookupEnv which has the
// signature of [os.LookupEnv]. run must log the listening address under [LogAddrKey] and the analyst under
// [LogAnalysisModeKey] before it. The server stops when ctx is cancelled.
func StartServer(
	ctx context.Context,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	startup := &startupLog{mu: sync.Mutex{}, mode: "", addrC: make(chan string, 1)}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: startup.replaceAttr,
	})))

	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "start application")
	case addr = <-startup.addrC:
	}

	s := &Server{
		url:          fmt.Sprintf("http://%s", addr),
		analysisMode: startup.analysisMode(),
		client:       nil,
	}
	var err error
	if s.client, err = s.NewSession(); err != nil {
		return nil, err
	}
	if err = s.client.WaitForReady(ctx, HealthPath); err != nil {
		return nil, errors.Wrap(err, "wait for ready")
	}
	return s, nil
}

// Client is the default browser session.
func (s *Server) Client() *Client {
	return s.client
}

// NewSession returns a client without cookies. It gets its own workspace on its first page visit.
func (s *Server) NewSession() (*Client, error) {
	client, err := NewClient(s.url)
	if err != nil {
		return nil, errors.Wrap(err, "new client")
	}
	return client, nil
}

func (s *Server) URL() string {
	return s.url
}

// AnalysisMode is the analyst the application reported at startup, "remote" or "offline".
func (s *Server) AnalysisMode() string {
	return s.analysisMode
}
