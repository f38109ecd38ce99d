package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2026, time.February, 28, 23, 59, 0, 0, time.FixedZone("EST", -5*60*60))
	window := models.DefaultWindow(now)
	require.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2028, time.February, 28, 0, 0, 0, 0, time.UTC), window.End)
	require.Equal(t, 730, window.Days())
	require.True(t, window.Contains(window.Start))
	require.True(t, window.Contains(window.End))
	require.False(t, window.Contains(window.End.AddDate(0, 0, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := models.ParseDate("2026-12-31")
	require.NoError(t, err)
	require.Equal(t, "2026-12-31", models.FormatDate(d))

	_, err = models.ParseDate("12/31/2026")
	require.Error(t, err)
}

func TestUserMessage(t *testing.T) {
	err := errors.Wrap(errors.Mark(models.ErrTransport, fmt.Errorf("status 502")), "analyze bill")
	require.Equal(t, "remote service unavailable", models.UserMessage(err, "fallback"))
	require.Equal(t, "fallback", models.UserMessage(fmt.Errorf("boom"), "fallback"))
}

func TestLookupJurisdiction(t *testing.T) {
	j, ok := models.LookupJurisdiction("New York")
	require.True(t, ok)
	require.Equal(t, "NY", j.Abbr)

	j, ok = models.LookupJurisdiction("DC")
	require.True(t, ok)
	require.Equal(t, "District of Columbia", j.Name)

	_, ok = models.LookupJurisdiction("Atlantis")
	require.False(t, ok)

	require.Len(t, models.Jurisdictions(), 51)
}

func TestAnalysisKeyPoints(t *testing.T) {
	analysis := models.BillAnalysis{
		Clauses: []models.Clause{
			{ID: "c1", Title: "Water", Summary: "Cleaner rivers", Category: models.CategoryEnvironment},
		},
	}
	bill := models.Bill{ID: "b1"}.WithKeyPoints(analysis.KeyPoints())
	require.Equal(t, []models.KeyPoint{
		{Title: "Water", Summary: "Cleaner rivers", Category: models.CategoryEnvironment},
	}, bill.KeyPoints)
	require.Equal(t, "Environment", models.CategoryEnvironment.Label())
}
