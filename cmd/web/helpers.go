package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/billeffect/internal/contexthelpers"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/store"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound)
}

// currentStore returns the store of the workspace assigned by the workspace middleware.
func (app *application) currentStore(r *http.Request) *store.Store {
	return app.workspaces.Get(contexthelpers.WorkspaceID(r.Context()))
}

// flash stores a message shown once on the next page render.
func (app *application) flash(r *http.Request, msg string) {
	app.sessionManager.Put(r.Context(), string(flashSessionKey), msg)
}

// redirectHome finishes a form submission with a Post/Redirect/Get.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type apiError struct {
	Error string `json:"error"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal json"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
