package ai_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/billeffect/internal/ai"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/stretchr/testify/require"
)

var window = models.DateRange{
	Start: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2028, time.January, 1, 0, 0, 0, 0, time.UTC),
}

func newOffline(seed uint64) *ai.Offline {
	return ai.NewOffline(
		ai.WithRand(rand.New(rand.NewPCG(seed, seed))), //nolint:gosec // deterministic test source.
		ai.WithSleeper(ai.NoSleep),
	)
}

func TestOffline_Analyze(t *testing.T) {
	tests := []struct {
		name      string
		billText  string
		wantTitle string
	}{
		{name: "citation", billText: "H.R. 1234: Clean Water Act\nbody", wantTitle: "Clean Water Act"},
		{name: "act marker", billText: "AN ACT to improve rural broadband\nbody", wantTitle: "to improve rural broadband"},
		{name: "fallback", billText: "nothing to see here", wantTitle: "Uploaded Bill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := newOffline(1).Analyze(context.Background(), tt.billText)
			require.NoError(t, err)
			require.Equal(t, tt.wantTitle, analysis.Title)
			require.NotEmpty(t, analysis.BillID)
			require.Equal(t, models.OverallMixed, analysis.OverallImpact)
			require.Equal(t, models.Timeframe{Immediate: true, ShortTerm: true, LongTerm: true},
				analysis.EstimatedTimeframe)

			categories := make([]models.Category, 0, len(analysis.Clauses))
			states := 0
			for _, c := range analysis.Clauses {
				categories = append(categories, c.Category)
				states += len(c.AffectedStates)
			}
			require.Equal(t, []models.Category{
				models.CategoryHealthcare,
				models.CategoryInfrastructure,
				models.CategoryEnvironment,
				models.CategoryEducation,
			}, categories)
			require.Equal(t, 24, states)
		})
	}
}

func TestOffline_Simulate(t *testing.T) {
	ctx := context.Background()
	for seed := range uint64(20) {
		o := newOffline(seed)
		analysis, err := o.Analyze(ctx, "H.R. 1: Test Act")
		require.NoError(t, err)
		events, err := o.Simulate(ctx, analysis, window)
		require.NoError(t, err)
		require.Len(t, events, 24)

		require.True(t, slices.IsSortedFunc(events, func(a, b models.SimulationEvent) int {
			return a.Date.Compare(b.Date)
		}), "events must be sorted by date")

		latest := window.Start.AddDate(0, 0, int(0.95*float64(window.Days())))
		ids := map[string]bool{}
		for _, e := range events {
			require.False(t, e.Date.Before(window.Start))
			require.False(t, e.Date.After(latest), "events stay within 95 percent of the window")
			require.Equal(t, models.Date(e.Date), e.Date, "dates are calendar dates")
			require.True(t, e.Impact.Valid())
			require.True(t, strings.HasSuffix(e.Title, " Impact in "+e.State), e.Title)
			require.Contains(t, e.Description, e.State)
			require.False(t, ids[e.ID], "duplicate id")
			ids[e.ID] = true
		}
	}
}

func TestOffline_SimulateStaggersClauses(t *testing.T) {
	analysis := models.BillAnalysis{ //nolint:exhaustruct // only clauses matter.
		Clauses: []models.Clause{
			{ID: "a", Title: "First", AffectedStates: []string{"Ohio"}, Category: models.CategoryEconomy},
			{ID: "b", Title: "Second", AffectedStates: []string{"Utah"}, Category: models.CategoryEconomy},
			{ID: "c", Title: "Third", AffectedStates: []string{"Iowa"}, Category: models.CategoryEconomy},
			{ID: "d", Title: "Fourth", AffectedStates: []string{"Idaho"}, Category: models.CategoryEconomy},
			{ID: "e", Title: "Fifth", AffectedStates: []string{"Maine"}, Category: models.CategoryEconomy},
			{ID: "f", Title: "Sixth", AffectedStates: []string{"Texas"}, Category: models.CategoryDefense},
		},
	}
	events, err := newOffline(7).Simulate(context.Background(), analysis, window)
	require.NoError(t, err)

	// The i-th clause lands in [0.2i, 0.2i+0.1) of the window, capped at 0.95.
	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.State)
	}
	require.Equal(t, []string{"Ohio", "Utah", "Iowa", "Idaho", "Maine", "Texas"}, got)
	require.Equal(t, "Defense Impact in Texas", events[5].Title)
	require.Equal(t, window.Start.AddDate(0, 0, int(0.95*float64(window.Days()))), events[5].Date)
}

func TestOffline_SimulateWindows(t *testing.T) {
	tests := []struct {
		name    string
		window  models.DateRange
		clauses []models.Clause
		want    []string
	}{
		{
			name: "one clause in two states over a year",
			window: models.DateRange{
				Start: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
			},
			clauses: []models.Clause{
				{ID: "a", Title: "Grants", AffectedStates: []string{"Ohio", "Utah"}, Category: models.CategoryEducation},
			},
			want: []string{"Ohio", "Utah"},
		},
		{
			name: "two clauses over a month",
			window: models.DateRange{
				Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
			},
			clauses: []models.Clause{
				{ID: "a", Title: "Grants", AffectedStates: []string{"Iowa"}, Category: models.CategoryEducation},
				{ID: "b", Title: "Roads", AffectedStates: []string{"Maine"}, Category: models.CategoryInfrastructure},
			},
			want: []string{"Iowa", "Maine"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := range uint64(10) {
				analysis := models.BillAnalysis{Clauses: tt.clauses} //nolint:exhaustruct // only clauses matter.
				events, err := newOffline(seed).Simulate(context.Background(), analysis, tt.window)
				require.NoError(t, err)
				require.Len(t, events, len(tt.want))

				require.True(t, slices.IsSortedFunc(events, func(a, b models.SimulationEvent) int {
					return a.Date.Compare(b.Date)
				}), "events must be sorted by date")
				states := make([]string, 0, len(events))
				for _, e := range events {
					require.False(t, e.Date.Before(tt.window.Start))
					require.False(t, e.Date.After(tt.window.End))
					states = append(states, e.State)
				}
				require.ElementsMatch(t, tt.want, states)
			}
		})
	}
}

func TestOffline_SimulateEmptyWindow(t *testing.T) {
	o := newOffline(3)
	analysis, err := o.Analyze(context.Background(), "bill")
	require.NoError(t, err)
	events, err := o.Simulate(context.Background(), analysis, models.DateRange{Start: window.Start, End: window.Start})
	require.NoError(t, err)
	for _, e := range events {
		require.Equal(t, window.Start, e.Date)
	}
}

func TestOffline_Latency(t *testing.T) {
	var slept []time.Duration
	o := ai.NewOffline(ai.WithSleeper(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))
	analysis, err := o.Analyze(context.Background(), "bill")
	require.NoError(t, err)
	_, err = o.Simulate(context.Background(), analysis, window)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{ai.OfflineAnalyzeLatency, ai.OfflineSimulateLatency}, slept)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ai.NewOffline().Analyze(ctx, "bill")
	require.ErrorIs(t, err, context.Canceled)
}
