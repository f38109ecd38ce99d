package main

import "net/http"

type healthyResponse struct {
	Status       string `json:"status"`
	AnalysisMode string `json:"analysisMode"`
	Workspaces   int    `json:"workspaces"`
}

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, healthyResponse{
		Status:       "ok",
		AnalysisMode: app.simulations.Mode(),
		Workspaces:   app.workspaces.Len(),
	})
}
