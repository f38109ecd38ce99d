package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/billeffect/internal/contexthelpers"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/simulation"
)

// startSimulation starts analyzing and simulating the loaded bill. The page follows the progress.
func (app *application) startSimulation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := app.simulations.Start(ctx, contexthelpers.WorkspaceID(ctx), app.currentStore(r))
	switch {
	case errors.Is(err, simulation.ErrNoBill):
		app.flash(r, "Load a bill before running the simulation.")
	case errors.Is(err, simulation.ErrAnalysisInProgress):
		app.flash(r, "The simulation is already running.")
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "start simulation"))
		return
	default:
		app.logger.LogAttrs(ctx, slog.LevelInfo, "simulation started")
	}
	redirectHome(w, r)
}

// resetSimulation unloads the bill and its events and rewinds playback.
func (app *application) resetSimulation(w http.ResponseWriter, r *http.Request) {
	app.currentStore(r).ResetSimulation()
	redirectHome(w, r)
}
