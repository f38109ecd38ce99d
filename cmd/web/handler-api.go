package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/store"
)

type visibleEventsResponse struct {
	AsOf   string                   `json:"asOf"`
	Events []models.SimulationEvent `json:"events"`
}

// visibleEvents lists the events dated on or before the asOf query parameter, which defaults to the playback
// date.
func (app *application) visibleEvents(w http.ResponseWriter, r *http.Request) {
	st := app.currentStore(r)
	asOf := st.Playback().CurrentDate
	if s := r.URL.Query().Get("asOf"); s != "" {
		var err error
		if asOf, err = models.ParseDate(s); err != nil {
			app.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "asOf must be a date formatted as YYYY-MM-DD"})
			return
		}
	}
	events := st.VisibleEventsAsOf(asOf)
	if events == nil {
		events = []models.SimulationEvent{}
	}
	app.writeJSON(w, r, http.StatusOK, visibleEventsResponse{
		AsOf:   models.FormatDate(asOf),
		Events: events,
	})
}

func (app *application) snapshot(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.currentStore(r).Snapshot())
}

// playbackStreamEvent is the SSE event name carrying a [store.Snapshot].
const playbackStreamEvent = "playback"

// playbackStream sends the workspace snapshot as Server Sent Events, first the current one and then one after
// every change, until the client goes away or the server shuts down.
func (app *application) playbackStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := app.currentStore(r)
	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}

	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSnapshot(w, rc, st.Snapshot()); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "playback stream closed", errors.SlogError(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(w, rc, snapshot); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelDebug, "playback stream closed", errors.SlogError(err))
				return
			}
		}
	}
}

func writeSnapshot(w http.ResponseWriter, rc *http.ResponseController, snapshot store.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", playbackStreamEvent, data); err != nil {
		return errors.Wrap(err, "write event")
	}
	if err = rc.Flush(); err != nil {
		return errors.Wrap(err, "flush event")
	}
	return nil
}
