package main

import (
	"io/fs"
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/billeffect/ui"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /static/", cacheForeverHeaders(http.StripPrefix("/static", http.FileServerFS(static))))

	session := alice.New(app.sessionManager.LoadAndSave, app.workspace)
	timeout := func(h http.Handler) http.Handler { return timeoutHandler(h, defaultTimeout) }
	pages := session.Append(timeout)

	mux.Handle("GET /{$}", pages.ThenFunc(app.home))
	mux.Handle("POST /bill", pages.ThenFunc(app.pasteBill))
	mux.Handle("POST /bill/upload", pages.ThenFunc(app.uploadBill))
	mux.Handle("POST /bill/clear", pages.ThenFunc(app.clearBill))
	mux.Handle("POST /simulation", pages.ThenFunc(app.startSimulation))
	mux.Handle("POST /simulation/reset", pages.ThenFunc(app.resetSimulation))
	mux.Handle("POST /playback/toggle", pages.ThenFunc(app.togglePlayback))
	mux.Handle("POST /playback/speed", pages.ThenFunc(app.setSpeed))
	mux.Handle("POST /playback/seek", pages.ThenFunc(app.seek))

	mux.Handle("GET /api/events", pages.ThenFunc(app.visibleEvents))
	mux.Handle("GET /api/snapshot", pages.ThenFunc(app.snapshot))
	// The stream must be able to flush, which rules out both LoadAndSave and the timeout handler.
	mux.Handle("GET /api/playback/stream",
		alice.New(app.serverSentEventMiddleware, app.existingWorkspace).ThenFunc(app.playbackStream))
	mux.HandleFunc("GET /api/healthy", app.healthy)

	mux.Handle("/", http.HandlerFunc(app.notFound))

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders, limitBody, noSurf, commonContext).Then(mux)
}
