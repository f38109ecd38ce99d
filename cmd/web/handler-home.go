package main

import (
	"net/http"
	"slices"
	"strings"

	"github.com/myrjola/billeffect/internal/contexthelpers"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/playback"
	"github.com/myrjola/billeffect/internal/store"
	"github.com/samber/lo"
)

// billPreviewLength is the number of runes of the bill text shown on the page.
const billPreviewLength = 600

type eventView struct {
	models.SimulationEvent
	// Abbr is the jurisdiction abbreviation, empty when the state cannot be placed on the map.
	Abbr string
}

type jurisdictionView struct {
	Name     string
	Abbr     string
	Positive int
	Negative int
	Neutral  int
}

// playbackView feeds the timeline partial.
type playbackView struct {
	store.Snapshot
	Speeds []playback.Speed
}

type homeTemplateData struct {
	BaseTemplateData

	Bill          *models.Bill
	BillPreview   string
	Snapshot      store.Snapshot
	AnalysisMode  string
	Playback      playbackView
	Events        []eventView
	Jurisdictions []jurisdictionView
	Unplaced      int
	Runs          []models.SimulationRun
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := app.currentStore(r)
	snapshot := st.Snapshot()
	visible := st.VisibleEventsAsOf(snapshot.Playback.CurrentDate)

	runs, err := app.runs.Recent(ctx, contexthelpers.WorkspaceID(ctx), 0)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list recent runs"))
		return
	}

	data := homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Bill:             nil,
		BillPreview:      "",
		Snapshot:         snapshot,
		AnalysisMode:     app.simulations.Mode(),
		Playback:         playbackView{Snapshot: snapshot, Speeds: playback.Speeds},
		Events:           nil,
		Jurisdictions:    nil,
		Unplaced:         0,
		Runs:             runs,
	}
	if bill, ok := st.Bill(); ok {
		data.Bill = &bill
		data.BillPreview = preview(bill.Content, billPreviewLength)
	}
	data.Events, data.Jurisdictions, data.Unplaced = viewEvents(visible)

	app.render(w, r, http.StatusOK, "home", data)
}

// viewEvents places the visible events on jurisdictions. Newest events come first.
func viewEvents(visible []models.SimulationEvent) ([]eventView, []jurisdictionView, int) {
	events := lo.Map(visible, func(e models.SimulationEvent, _ int) eventView {
		j, _ := models.LookupJurisdiction(e.State)
		return eventView{SimulationEvent: e, Abbr: j.Abbr}
	})
	slices.Reverse(events)

	placed, unplaced := lo.FilterReject(events, func(e eventView, _ int) bool { return e.Abbr != "" })
	byAbbr := lo.GroupBy(placed, func(e eventView) string { return e.Abbr })

	jurisdictions := make([]jurisdictionView, 0, len(byAbbr))
	for _, j := range models.Jurisdictions() {
		group, ok := byAbbr[j.Abbr]
		if !ok {
			continue
		}
		counts := lo.CountValuesBy(group, func(e eventView) models.Impact { return e.Impact })
		jurisdictions = append(jurisdictions, jurisdictionView{
			Name:     j.Name,
			Abbr:     j.Abbr,
			Positive: counts[models.ImpactPositive],
			Negative: counts[models.ImpactNegative],
			Neutral:  counts[models.ImpactNeutral],
		})
	}
	return events, jurisdictions, len(unplaced)
}

func preview(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
