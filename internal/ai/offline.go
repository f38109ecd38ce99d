package ai

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/samber/lo"
)

const (
	OfflineAnalyzeLatency  = 1500 * time.Millisecond
	OfflineSimulateLatency = time.Second

	offlineTitle = "Uploaded Bill"

	clauseSpread = 0.2
	stateSpread  = 0.05
	jitter       = 0.1
	maxFraction  = 0.95
)

var offlineTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:H\.R\.|S\.|H\.J\.Res\.|S\.J\.Res\.)\s*\d+[:\s]+([^\n]+)`),
	regexp.MustCompile(`(?i)(?:ACT|BILL)[:\s]+([^\n]+)`),
}

// Offline is the [Analyst] that works without network access. It returns a canned analysis and spreads
// pseudo-random events over the window.
type Offline struct {
	mu    sync.Mutex
	rand  *rand.Rand
	sleep Sleeper
}

// OfflineOption configures [Offline].
type OfflineOption func(*Offline)

// WithRand sets the random source. Use a seeded source for reproducible events.
func WithRand(r *rand.Rand) OfflineOption {
	return func(o *Offline) { o.rand = r }
}

// WithSleeper sets how the simulated latency is waited out.
func WithSleeper(s Sleeper) OfflineOption {
	return func(o *Offline) { o.sleep = s }
}

func NewOffline(opts ...OfflineOption) *Offline {
	o := &Offline{ //nolint:exhaustruct // mu zero value is ready to use.
		rand:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive.
		sleep: Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Offline) Mode() string {
	return ModeOffline
}

// Analyze returns the canned four clause analysis titled after the bill citation when one is found.
func (o *Offline) Analyze(ctx context.Context, billText string) (models.BillAnalysis, error) {
	if err := o.sleep(ctx, OfflineAnalyzeLatency); err != nil {
		return models.BillAnalysis{}, errors.Wrap(err, "analyze bill offline")
	}
	return models.BillAnalysis{
		BillID: uuid.NewString(),
		Title:  offlineBillTitle(billText),
		Summary: "This bill proposes changes to federal policy that will affect multiple states across the " +
			"country. The legislation includes provisions for healthcare, infrastructure, and economic development.",
		Clauses: []models.Clause{
			{
				ID:             uuid.NewString(),
				Title:          "Healthcare Expansion",
				Summary:        "Expands Medicare coverage to additional populations in underserved areas.",
				AffectedStates: []string{"Texas", "California", "Florida", "New York", "Arizona"},
				Category:       models.CategoryHealthcare,
			},
			{
				ID:      uuid.NewString(),
				Title:   "Infrastructure Investment",
				Summary: "Allocates federal funds for highway and bridge repairs in rural states.",
				AffectedStates: []string{
					"Montana", "Wyoming", "North Dakota", "South Dakota", "Nebraska", "Kansas", "Oklahoma",
				},
				Category: models.CategoryInfrastructure,
			},
			{
				ID:             uuid.NewString(),
				Title:          "Clean Energy Initiative",
				Summary:        "Provides tax incentives for renewable energy adoption.",
				AffectedStates: []string{"California", "Texas", "Colorado", "Washington", "Oregon", "Nevada"},
				Category:       models.CategoryEnvironment,
			},
			{
				ID:      uuid.NewString(),
				Title:   "Education Grants",
				Summary: "Creates new federal grant program for public schools.",
				AffectedStates: []string{
					"Mississippi", "Louisiana", "Alabama", "Arkansas", "West Virginia", "Kentucky",
				},
				Category: models.CategoryEducation,
			},
		},
		OverallImpact:      models.OverallMixed,
		EstimatedTimeframe: models.Timeframe{Immediate: true, ShortTerm: true, LongTerm: true},
	}, nil
}

func offlineBillTitle(billText string) string {
	for _, pattern := range offlineTitlePatterns {
		if m := pattern.FindStringSubmatch(billText); m != nil {
			if title := strings.TrimSpace(m[1]); title != "" {
				return title
			}
		}
	}
	return offlineTitle
}

// Simulate places one event per clause and affected jurisdiction. Later clauses and later jurisdictions land
// later in the window, with some jitter, and never in the last five percent of it.
func (o *Offline) Simulate(
	ctx context.Context,
	analysis models.BillAnalysis,
	window models.DateRange,
) ([]models.SimulationEvent, error) {
	if err := o.sleep(ctx, OfflineSimulateLatency); err != nil {
		return nil, errors.Wrap(err, "simulate impacts offline")
	}
	spanDays := float64(window.Days())

	o.mu.Lock()
	var events []models.SimulationEvent
	for i, clause := range analysis.Clauses {
		for j, state := range clause.AffectedStates {
			fraction := math.Min(clauseSpread*float64(i)+stateSpread*float64(j)+o.rand.Float64()*jitter, maxFraction)
			impact := models.Impacts[o.rand.IntN(len(models.Impacts))]
			events = append(events, models.SimulationEvent{
				ID:          uuid.NewString(),
				State:       state,
				Date:        window.Start.AddDate(0, 0, int(math.Floor(fraction*spanDays))),
				Title:       fmt.Sprintf("%s Impact in %s", clause.Category.Label(), state),
				Description: eventDescription(clause.Category, impact, state),
				Impact:      impact,
			})
		}
	}
	o.mu.Unlock()

	slices.SortStableFunc(events, func(a, b models.SimulationEvent) int {
		return a.Date.Compare(b.Date)
	})
	return events, nil
}

var eventDescriptions = map[models.Category]map[models.Impact]string{
	models.CategoryHealthcare: {
		models.ImpactPositive: "Healthcare coverage expanded in %s. Local hospitals report increased capacity to serve underserved communities.",
		models.ImpactNegative: "Healthcare providers in %s struggling to meet new requirements. Administrative costs increasing.",
		models.ImpactNeutral:  "Healthcare policy changes taking effect in %s. Stakeholders monitoring implementation closely.",
	},
	models.CategoryInfrastructure: {
		models.ImpactPositive: "Major highway repairs completed in %s. Commute times reduced and economic activity increasing.",
		models.ImpactNegative: "Infrastructure projects in %s facing delays and cost overruns. Traffic disruptions ongoing.",
		models.ImpactNeutral:  "Infrastructure assessment underway in %s. State officials planning project priorities.",
	},
	models.CategoryEnvironment: {
		models.ImpactPositive: "Renewable energy installations surge in %s. Solar and wind capacity expanding rapidly.",
		models.ImpactNegative: "Energy transition in %s causing short-term job losses in traditional sectors.",
		models.ImpactNeutral:  "%s evaluating clean energy options. Environmental impact studies in progress.",
	},
	models.CategoryEducation: {
		models.ImpactPositive: "Schools in %s receiving new federal funding. Teacher salaries and resources improving.",
		models.ImpactNegative: "Education mandates creating compliance burden for %s school districts.",
		models.ImpactNeutral:  "%s education department reviewing new grant requirements and eligibility.",
	},
	models.CategoryEconomy: {
		models.ImpactPositive: "Economic growth accelerating in %s. New businesses and jobs being created.",
		models.ImpactNegative: "Economic uncertainty in %s as businesses adapt to new regulations.",
		models.ImpactNeutral:  "%s businesses assessing impact of new federal policies on operations.",
	},
	models.CategoryDefense: {
		models.ImpactPositive: "Defense contracts bringing jobs to %s. Military installations expanding.",
		models.ImpactNegative: "Defense budget changes affecting %s military communities.",
		models.ImpactNeutral:  "%s evaluating defense policy changes. Base assessments ongoing.",
	},
	models.CategorySocial: {
		models.ImpactPositive: "Social programs in %s expanding services. More residents receiving assistance.",
		models.ImpactNegative: "Social program changes in %s causing adjustment challenges for beneficiaries.",
		models.ImpactNeutral:  "%s implementing new social program requirements. Outreach efforts underway.",
	},
	models.CategoryOther: {
		models.ImpactPositive: "Policy changes bringing positive outcomes to %s residents.",
		models.ImpactNegative: "New federal requirements creating challenges for %s agencies.",
		models.ImpactNeutral:  "%s officials monitoring policy implementation and gathering feedback.",
	},
}

func eventDescription(category models.Category, impact models.Impact, state string) string {
	byImpact, ok := eventDescriptions[category]
	if !ok {
		byImpact = eventDescriptions[models.CategoryOther]
	}
	return fmt.Sprintf(lo.ValueOr(byImpact, impact, eventDescriptions[models.CategoryOther][impact]), state)
}
