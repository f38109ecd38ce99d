package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/playback"
)

func (app *application) togglePlayback(w http.ResponseWriter, r *http.Request) {
	app.currentStore(r).TogglePlayback()
	redirectHome(w, r)
}

func (app *application) setSpeed(w http.ResponseWriter, r *http.Request) {
	speed, err := parseSpeed(r.PostFormValue("speed"))
	if err == nil {
		err = app.currentStore(r).SetSpeed(speed)
	}
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "invalid speed", errors.SlogError(err))
		app.flash(r, "Choose a speed of 1x, 2x or 5x.")
	}
	redirectHome(w, r)
}

func parseSpeed(s string) (playback.Speed, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Mark(playback.ErrInvalidSpeed, err)
	}
	return playback.ParseSpeed(n)
}

// seek moves the playback date. Dates outside the simulation window are clamped.
func (app *application) seek(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(r.PostFormValue("date"))
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "invalid seek date", errors.SlogError(err))
		app.flash(r, "Enter the date as YYYY-MM-DD.")
		redirectHome(w, r)
		return
	}
	app.currentStore(r).Seek(date)
	redirectHome(w, r)
}
